// Package config provides configuration management for the FinAgent service.
//
// # Overview
//
// Configuration is split in two:
//
//   - Settings: the credentials and model parameters (MODEL_ID, TEMPERATURE,
//     ANTHROPIC_API_KEY, plus the optional news provider keys). These are
//     read from the process environment, optionally pre-populated from a
//     local .env file, validated once at startup, and never mutated. See
//     LoadSettings.
//   - Config: everything else the service needs to run (listen address,
//     logging, market symbols, news limits). Loaded with Viper from a YAML
//     file that is created with defaults on first use.
//
// # Environment Variables
//
// Settings recognizes MODEL_ID, TEMPERATURE, ANTHROPIC_API_KEY, NEWSAPI_KEY
// and MARKETAUX_API_KEY. Unrecognized variables are ignored. Values already
// set in the environment always take precedence over .env file entries.
//
// Config values can be overridden with the FINAGENT_ prefix; nested fields
// are separated by underscores:
//
//   - FINAGENT_SERVER_PORT=9000
//   - FINAGENT_LOGGING_LEVEL=debug
//
// # Failure Semantics
//
// A missing required key, an unparseable temperature, or a temperature
// outside [0.0, 1.0] is a fatal configuration error surfaced at startup as a
// *MissingKeyError, *ParseError or *RangeError. Nothing is retried and no
// default is silently substituted for a required value.
//
// # Path Expansion
//
// ~ is expanded to the user's home directory in all path configurations.
package config
