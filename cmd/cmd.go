// Package cmd contains the plexsweep CLI commands.
package cmd

func Execute() error {
	return rootCmd.Execute()
}
