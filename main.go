// sysmon samples thread and system load into fixed-length histories and
// exposes them to in-process readers, a Prometheus textfile and an event
// journal.
package main

import (
	"fmt"
	"os"

	"sysmon/core"

	"github.com/kardianos/service"
)

const usage = `usage: sysmon [command]

commands:
  run        run the agent (default)
  install    install as a system service
  uninstall  remove the system service
  start      start the installed service
  stop       stop the installed service
  restart    restart the installed service
  status     print the service state
  version    print version information
`

func main() {
	command := "run"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	os.Exit(dispatch(command))
}

func dispatch(command string) int {
	switch command {
	case "run":
		if !service.Interactive() {
			if err := runService(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return core.ExitCodeError
			}
			return core.ExitCodeSuccess
		}
		return runAgent(nil, true)

	case "install", "uninstall", "start", "stop", "restart":
		if err := controlService(command); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return core.ExitCodeError
		}
		fmt.Printf("Service %s: ok\n", command)
		return core.ExitCodeSuccess

	case "status":
		status, err := serviceStatus()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return core.ExitCodeError
		}
		fmt.Println(status)
		return core.ExitCodeSuccess

	case "version", "-v", "--version":
		fmt.Println("sysmon", core.GetVersionInfo())
		return core.ExitCodeSuccess

	case "help", "-h", "--help":
		fmt.Print(usage)
		return core.ExitCodeSuccess

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return core.ExitCodeConfig
	}
}
