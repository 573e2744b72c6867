package main

func main() {
	// nolint:errcheck
	rootCmd.Execute()
}
