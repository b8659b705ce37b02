// dotnope launches commands under the per-package environment firewall
// and carries the supporting tooling: policy scenarios, native-component
// attestation, audit chain verification.
package main

import "github.com/dotnope/dotnope/internal/cli"

func main() {
	cli.Execute()
}
