// Aegis is an AI response governance engine.
//
// It generates model responses through a governance pipeline that
// checks a response cache, evaluates declarative policies, scores the
// candidate with a pool of judge models, and remediates (blocks,
// redacts, or rewrites) anything that violates policy before it
// reaches the caller.
//
// Usage:
//
//	# Start the engine with default configuration
//	aegis run
//
//	# Start with a custom configuration file
//	aegis run --config /etc/aegis/config.yaml
//
//	# Lint policy files
//	aegis validate --dir ./policies
//
//	# Show version information
//	aegis version
package main

func main() {
	Execute()
}
