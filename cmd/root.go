// Package cmd contains the command-line interface of seoaudit. It uses the
// Cobra library to wire the crawl and analysis passes together.
package cmd

import (
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

var (
	configPath string
	outputDir  string

	rootCmd = &cobra.Command{
		Use:   "seoaudit",
		Short: "seoaudit crawls a site and audits its technical SEO health.",
		Long: `A site crawl and link-graph analysis engine: it walks a site breadth-first,
stores every page and link, and reports link distribution, duplicate content
and technical issues with an overall 0-100 score.`,
		Version: Version,
	}
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "Directory containing seoaudit.yaml")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Directory for report files (overrides config)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
