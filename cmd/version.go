package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appBuilt   = "unknown"
)

// SetVersion records the build metadata injected at link time
func SetVersion(version, buildTime string) {
	appVersion = version
	appBuilt = buildTime
	rootCmd.Version = version
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: skipInit,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yfscreener %s (built %s, %s %s/%s)\n",
			appVersion, appBuilt, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
