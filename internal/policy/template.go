package policy

// StarterYAML returns a commented dotnope.yaml for init-policy.
func StarterYAML() string {
	return `# dotnope policy configuration
# Generated by: dotnope init-policy
#
# Every entry under environmentWhitelist names a package and lists the
# environment variables it may touch. A bare array grants read only.
# The record form separates read, write, and delete grants; write and
# delete each imply read. "*" matches any variable.

environmentWhitelist:
  __options__:
    # Deny when the caller cannot be attributed to a package.
    failClosed: true
    # Mediate writes, deletes, and key enumeration.
    protectWrites: true
    protectDeletes: true
    protectEnumeration: true
    # Callers originating from dynamically generated code always deny.
    allowEval: false
    # The host application itself is never filtered.
    treatMainAsUnrestricted: true

  # Read-only grant (array form):
  # some-config-lib: [NODE_ENV, LOG_LEVEL]

  # Full record form:
  # dotenv:
  #   allowed: [NODE_ENV]
  #   canWrite: [APP_MODE]
  #   canDelete: []

# Webhook alerts on denied access and tamper events (optional):
# alerts:
#   - url: https://hooks.example.com/dotnope
#     events: [deny, binary_tamper]
`
}
