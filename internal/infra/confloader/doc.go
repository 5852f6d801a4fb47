// Package confloader loads blazar configuration with koanf and watches the
// configuration file for changes.
//
// Sources, from lowest to highest priority: the defaults already set in
// the target struct, a YAML file, BLAZAR_ environment variables, then
// dotted-key overrides from command-line flags. Environment variables use
// a double underscore between nesting levels so key names containing
// underscores survive: BLAZAR_PROXY__REDIS_AUTH sets proxy.redis_auth.
package confloader
