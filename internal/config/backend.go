package config

// ConfigBackend abstracts persistent config storage so that Load and the
// `config set` command can be tested against an in-memory implementation.
// The default backend is a flat JSON file in the XDG config directory.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
