package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildTime=...".
var (
	version   = ""
	commit    = ""
	buildTime = ""
)

// versionInfo is the output of the version command.
type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

func newVersionCmd(app *cliApp) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   CmdNameVersion,
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			v := getVersionInfo()
			text := fmt.Sprintf(VersionTextTemplate+FmtNewline, v.Version, v.Commit, v.BuildTime, v.GoVersion)
			data, err := encode(v, text, format)
			if err != nil {
				return err
			}
			_, err = app.stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "output format: text, json, yaml")
	return cmd
}

// getVersionInfo prefers values set at link time and falls back to the
// module and VCS data embedded by the go tool.
func getVersionInfo() *versionInfo {
	v := &versionInfo{
		Version:   orUnknown(version),
		Commit:    orUnknown(commit),
		BuildTime: orUnknown(buildTime),
		GoVersion: runtime.Version(),
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if version == "" && info.Main.Version != "" && info.Main.Version != VersionDevelopmentMark {
		v.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case VersionBuildKeyRev:
			if commit == "" {
				v.Commit = s.Value
			}
		case VersionBuildKeyTime:
			if buildTime == "" {
				v.BuildTime = s.Value
			}
		}
	}
	return v
}

func orUnknown(s string) string {
	if s == "" {
		return VersionUnknown
	}
	return s
}
