/*
Package cli provides command-line helpers shared by the edge command.

Output Formatting:

Command results are printed as text or JSON depending on --output:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, result)

Results implementing Texter control their own text rendering.

Errors and Exit Codes:

Commands return *ConfigError for unusable configuration and *CommandError
for everything else. ExitCode maps them to 2 and 1.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()   // SIGINT, SIGTERM
	defer stop()
	hup, stopHUP := cli.ReloadSignals()     // SIGHUP triggers a reload
	defer stopHUP()
*/
package cli
