package cli

const (
	MsgRootShort = "Merge proxy rule lists into domain rule sets"
	MsgRootLong  = `rulemerge fetches upstream proxy rule lists, normalizes every entry,
drops allowlisted rules, deduplicates, and writes one rule-provider
document per category.`

	MsgBuildShort     = "Build every category once and write its document"
	MsgServeShort     = "Rebuild periodically and serve rule sets over gRPC and HTTP"
	MsgNormalizeShort = "Normalize raw rule lines from a file or stdin"
	MsgMatchShort     = "Ask a running server whether a host is covered by a rule set"

	MsgFlagConfig   = "config file (default ./rulemerge.yaml or $XDG_CONFIG_HOME/rulemerge/config.yaml)"
	MsgFlagVerbose  = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagCategory = "build only the named category (repeatable)"
	MsgFlagProject  = "print final entries instead of kind,value rules"
	MsgFlagServer   = "gRPC server address (default serve.grpc_addr)"
	MsgFlagTimeout  = "request timeout"

	MsgNoMatch         = "%s: no match in %s\n"
	MsgMatch           = "%s: matched %s in %s\n"
	MsgCategoriesError = "%d of %d categories failed: %v"
)
