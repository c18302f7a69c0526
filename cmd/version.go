package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jeeftor/yamlsql/internal/constants"
)

// Set at release time with -ldflags "-X github.com/jeeftor/yamlsql/cmd.buildVersion=..."
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildTime    = "unknown"
)

var (
	versionShort bool
	versionJSON  bool
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	Scope     string `json:"scope"`
}

// currentBuild merges the ldflags values with what the Go toolchain embedded
func currentBuild() BuildInfo {
	bi, _ := debug.ReadBuildInfo()
	return resolveBuild(buildVersion, buildCommit, buildTime, bi)
}

// resolveBuild prefers ldflags values and falls back to the module version
// and VCS stamps of bi, which is nil when the binary carries no build info
func resolveBuild(version, commit, built string, bi *debug.BuildInfo) BuildInfo {
	info := BuildInfo{
		Version:   version,
		Commit:    commit,
		Built:     formatBuildTime(built),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Scope:     constants.InjectionScope,
	}
	if bi == nil {
		return info
	}

	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if built == "unknown" {
				info.Built = formatBuildTime(s.Value)
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// DisplayVersion is the version string reported to users and editors
func (b BuildInfo) DisplayVersion() string {
	if b.Version != "dev" {
		return b.Version
	}
	if b.Commit == "none" {
		return "dev"
	}
	if b.Modified {
		return fmt.Sprintf("dev (%s, modified)", b.Commit)
	}
	return fmt.Sprintf("dev (%s)", b.Commit)
}

// GetDisplayVersion returns the version of this binary
func GetDisplayVersion() string {
	return currentBuild().DisplayVersion()
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// formatBuildTime accepts RFC3339 or Unix seconds
func formatBuildTime(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format("2006-01-02 15:04:05 MST")
	}
	if sec, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return time.Unix(sec, 0).UTC().Format("2006-01-02 15:04:05 MST")
	}
	return s
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentBuild()
		out := cmd.OutOrStdout()

		switch {
		case versionShort:
			fmt.Fprintln(out, info.DisplayVersion())
			return nil
		case versionJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		label := color.New(color.FgWhite)
		color.Output = out
		row := func(name string, c *color.Color, value string) {
			label.Printf("%-9s", name+":")
			c.Printf("%s\n", value)
		}

		row("Version", color.New(color.FgCyan, color.Bold), info.DisplayVersion())
		row("Scope", color.New(color.FgBlue), fmt.Sprintf("%s (%s)", info.Scope, constants.InjectionSelector))
		row("Built", color.New(color.FgYellow), info.Built)
		row("Commit", color.New(color.FgGreen), info.Commit)
		row("OS/Arch", color.New(color.FgMagenta), info.Platform)
		row("Go", color.New(color.FgRed), info.GoVersion)
		if exe, err := os.Executable(); err == nil {
			row("Binary", color.New(color.FgBlue), exe)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionShort, "short", "n", false, "print only the version")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print build information as JSON")
	rootCmd.AddCommand(versionCmd)
}
