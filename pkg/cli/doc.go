// Package cli provides the shared plumbing of the vsound command line:
// kubectl-style contexts stored under ~/.giztoy/<app>/config.yaml, yaml/json
// output, and a lipgloss status frame fed by a captured log.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("vsound")
//	ctx, err := cfg.ResolveContext(name)
//	listen := ctx.GetExtra("listen")
//
//	cli.Output(snapshot, cli.OutputOptions{Format: cli.FormatJSON})
package cli
