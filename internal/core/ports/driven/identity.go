package driven

// IdentityProvider is the external identity provider. The core treats
// an empty user id as "session invalid, do not start any subsystem".
type IdentityProvider interface {
	// CurrentUserID returns the stable identifier of the signed-in
	// user, or "" when nobody is signed in.
	CurrentUserID() string

	// SignOut ends the identity session.
	SignOut() error
}

// ConfigStore provides application configuration as typed key lookups.
type ConfigStore interface {
	// Get retrieves a raw configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value ("" if unset).
	GetString(key string) string

	// GetInt retrieves an integer configuration value (0 if unset).
	GetInt(key string) int

	// GetBool retrieves a boolean configuration value (false if unset).
	GetBool(key string) bool

	// Set stores a configuration value and persists it.
	Set(key string, value any) error
}
