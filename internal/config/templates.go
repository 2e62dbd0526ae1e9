package config

// GlobalConfigTemplate is the default template for ~/.config/reactortest/config.yaml.
// It includes comments explaining each option.
const GlobalConfigTemplate = `# reactortest global configuration
# Location: ~/.config/reactortest/config.yaml

# Schema version (required)
version: 1

# Minimum log level: debug, info, warn, error
log_level: info

# Fail (instead of skip) tests whose backend construction returns an error
# that is not an "unavailable" error
strict: false

# Reap loop run after every generated test
# max_attempts: 0 keeps reaping until no child processes are pending
reap:
  max_attempts: 100
  initial_interval: 10ms
  max_interval: 500ms
`

// ProjectConfigTemplate is the default template for .reactortest.yaml.
// It includes commented examples for all configuration options.
const ProjectConfigTemplate = `# reactortest project configuration
# Location: .reactortest.yaml (repository root)

# Schema version (required)
version: 1

# Backends to generate cases for, in order (optional)
# If omitted, the built-in default registry is used
# backends:
#   - reactortest.reactor.SelectReactor
#   - reactortest.reactor.PollReactor
#   - reactortest.reactor.EPollReactor
#   - reactortest.reactor.KQueueReactor
#
#   # Reference host environment variable (comma-separated lists allowed)
#   - ${EXTRA_REACTORS}

# Backends to leave out, by identifier or short name (optional)
# exclude:
#   - KQueueReactor

# Strict mode override (optional)
# strict: true

# Reap loop overrides (optional)
# reap:
#   max_attempts: 20
`

// ProjectConfigMinimalTemplate is a minimal template without comments.
const ProjectConfigMinimalTemplate = `version: 1
`
