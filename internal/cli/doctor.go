package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dotnope/dotnope/internal/integrity"
	"github.com/dotnope/dotnope/internal/launcher"
	"github.com/dotnope/dotnope/internal/policy"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system readiness and diagnose configuration issues",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Binary location and version.
	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{
			label:  "dotnope binary",
			ok:     true,
			detail: fmt.Sprintf("%s (v%s)", execPath, version),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "dotnope binary",
			ok:     false,
			detail: "cannot determine executable path",
		})
	}

	// 2. Preload platform.
	if launcher.PreloadSupported() {
		checks = append(checks, checkResult{
			label:  "preload mechanism",
			ok:     true,
			detail: runtime.GOOS + " supports LD_PRELOAD",
		})
	} else {
		checks = append(checks, checkResult{
			label:  "preload mechanism",
			ok:     false,
			detail: runtime.GOOS + " has no supported loader preload; the native plane is advisory",
		})
	}

	// 3. Interposer library and attestation.
	if lib := launcher.LocateLibrary(); lib != "" {
		result, err := integrity.VerifyFile(lib, "")
		switch {
		case err != nil:
			checks = append(checks, checkResult{label: "interposer library", ok: false, detail: err.Error()})
		case result.Outcome == integrity.OutcomeRefused:
			checks = append(checks, checkResult{
				label:  "interposer library",
				ok:     false,
				detail: result.Err.Error(),
				fix:    "rebuild the library and regenerate its manifest: dotnope manifest generate " + lib,
			})
		case result.Outcome == integrity.OutcomeWarning:
			checks = append(checks, checkResult{
				label:  "interposer library",
				ok:     true,
				detail: lib + " (unattested: no manifest)",
				fix:    "attest it: dotnope manifest generate " + lib,
			})
		default:
			checks = append(checks, checkResult{label: "interposer library", ok: true, detail: lib + " (verified)"})
		}
	} else {
		checks = append(checks, checkResult{
			label:  "interposer library",
			ok:     false,
			detail: "not found",
			fix:    "build it: go build -buildmode=c-shared -o " + launcher.LibraryName + " ./cmd/dotnope-interposer",
		})
	}

	// 4. Policy configuration.
	cfgPath := rootConfig
	if cfgPath == "" {
		cfgPath = policy.DefaultConfigPath()
	}
	if _, err := os.Stat(cfgPath); err == nil {
		if p, err := policy.LoadFile(cfgPath); err == nil {
			checks = append(checks, checkResult{
				label:  "policy configuration",
				ok:     true,
				detail: fmt.Sprintf("%s (%d packages)", cfgPath, len(p.PackageNames())),
			})
		} else {
			checks = append(checks, checkResult{label: "policy configuration", ok: false, detail: err.Error()})
		}
	} else {
		checks = append(checks, checkResult{
			label:  "policy configuration",
			ok:     false,
			detail: cfgPath + " not found (fail-closed defaults apply)",
			fix:    "create one: dotnope init-policy",
		})
	}

	// 5. Config directory.
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".dotnope")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			checks = append(checks, checkResult{label: "config directory", ok: true, detail: dir})
		} else {
			checks = append(checks, checkResult{
				label:  "config directory",
				ok:     false,
				detail: dir + " missing",
				fix:    "mkdir -p " + dir,
			})
		}
	}

	failed := 0
	for _, c := range checks {
		mark := "ok"
		if !c.ok {
			mark = "FAIL"
			failed++
		}
		fmt.Printf("  %-4s  %-22s %s\n", mark, c.label, c.detail)
		if c.fix != "" {
			fmt.Printf("        %-22s fix: %s\n", "", c.fix)
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d checks failed.\n", failed, len(checks))
		os.Exit(1)
	}
	fmt.Printf("\nAll %d checks passed.\n", len(checks))
	return nil
}
