package main

import (
	"encoding/json"
	"fmt"
	"github.com/CodedInternet/gosupercar/onboard"
	"github.com/CodedInternet/gosupercar/onboard/errors"
	"github.com/abiosoft/ishell/v2"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"io"
	"strconv"
	"strings"
)

type shellCommand struct {
	name  string
	help  string
	nargs int
	run   func(s *server, out io.Writer, args []string) error
}

var shellCommands = []shellCommand{
	{"status", "status", 0, func(s *server, out io.Writer, args []string) error {
		state, err := json.MarshalIndent(s.car.State(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(state))
		return nil
	}},
	{"start", "start <forward|backward>", 1, func(s *server, out io.Writer, args []string) error {
		dir, err := parseDirection(args[0])
		if err != nil {
			return err
		}
		s.car.Start(dir)
		return nil
	}},
	{"stop", "stop", 0, func(s *server, out io.Writer, args []string) error {
		s.car.Stop()
		return nil
	}},
	{"throttle", "throttle <speed>", 1, func(s *server, out io.Writer, args []string) error {
		speed, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return pkgerrors.Wrap(err, "bad speed")
		}
		s.car.Throttle(speed)
		return nil
	}},
	{"turn", "turn <left|right|none>", 1, func(s *server, out io.Writer, args []string) error {
		switch strings.ToLower(args[0]) {
		case "left":
			s.car.Turn(onboard.LEFT)
		case "right":
			s.car.Turn(onboard.RIGHT)
		case "none":
			s.car.Turn(onboard.NONE)
		default:
			return pkgerrors.Errorf("unknown steering %s", args[0])
		}
		return nil
	}},
	{"reverse", "reverse", 0, func(s *server, out io.Writer, args []string) error {
		s.car.Reverse()
		fmt.Fprintf(out, "direction %s\n", s.car.GetDirection())
		return nil
	}},
	{"reverse-mode", "reverse-mode", 0, func(s *server, out io.Writer, args []string) error {
		s.car.ReverseMode()
		fmt.Fprintf(out, "mode %s\n", s.car.GetMode())
		return nil
	}},
	{"mode", "mode <motion|sway>", 1, func(s *server, out io.Writer, args []string) error {
		switch strings.ToLower(args[0]) {
		case "motion":
			s.car.SetMode(onboard.MOTION)
		case "sway":
			s.car.SetMode(onboard.SWAY)
		default:
			return pkgerrors.Errorf("unknown mode %s", args[0])
		}
		s.car.CheckMode()
		return nil
	}},
	{"max-speed", "max-speed <speed>", 1, func(s *server, out io.Writer, args []string) error {
		speed, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return pkgerrors.Wrap(err, "bad speed")
		}
		s.car.SetMaxSpeed(speed)
		fmt.Fprintf(out, "max speed %.0f\n", s.car.MaxSpeed())
		return nil
	}},
	{"power", "power <on|off>", 1, func(s *server, out io.Writer, args []string) error {
		switch strings.ToLower(args[0]) {
		case "on":
			s.car.Power(true)
		case "off":
			s.car.Power(false)
		default:
			return pkgerrors.Errorf("unknown power state %s", args[0])
		}
		return nil
	}},
	{"config", "config [propulsion|steering]", 0, func(s *server, out io.Writer, args []string) error {
		var cfg interface{} = s.car.Config()
		if len(args) > 0 {
			motor, ok := s.car.Motor(args[0])
			if !ok {
				return errors.MotorNameError{Name: args[0]}
			}
			cfg = motor.Config()
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(data))
		return nil
	}},
	{"save", "save", 0, func(s *server, out io.Writer, args []string) error {
		if err := onboard.SaveAll(s.store, s.car); err != nil {
			return err
		}
		fmt.Fprintln(out, "config saved")
		return nil
	}},
}

func parseDirection(arg string) (onboard.RunningDirection, error) {
	switch strings.ToLower(arg) {
	case "forward":
		return onboard.FORWARD, nil
	case "backward":
		return onboard.BACKWARD, nil
	}
	return onboard.STOPPED, pkgerrors.Errorf("unknown direction %s", arg)
}

// runCommand executes one shell command by name.
func (s *server) runCommand(out io.Writer, name string, args []string) error {
	for _, cmd := range shellCommands {
		if cmd.name != name {
			continue
		}
		if len(args) < cmd.nargs {
			return pkgerrors.Errorf("usage: %s", cmd.help)
		}
		return cmd.run(s, out, args)
	}
	return pkgerrors.Errorf("unknown command %s", name)
}

// contextWriter sends command output to the shell.
type contextWriter struct {
	c *ishell.Context
}

func (w contextWriter) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}

func (s *server) newShell() *ishell.Shell {
	shell := ishell.New()
	shell.Println("Supercar development shell")

	shell.AddCmd(&ishell.Cmd{
		Name: "createsuperuser",
		Help: "createsuperuser <email> <password>",
		Func: func(c *ishell.Context) {
			// disable the '>>>' for cleaner same line input.
			c.ShowPrompt(false)
			defer c.ShowPrompt(true) // yes, revert when done.

			// get email
			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			// get password
			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			if err := s.createUser(email, password); err != nil {
				c.Err(err)
				return
			}
			c.Println("Superuser created")
		},
	})

	motorNames := func([]string) []string {
		return []string{onboard.PROPULSION, onboard.STEERING}
	}

	for _, cmd := range shellCommands {
		cmd := cmd
		shellCmd := &ishell.Cmd{
			Name: cmd.name,
			Help: cmd.help,
			Func: func(c *ishell.Context) {
				if err := s.runCommand(contextWriter{c}, cmd.name, c.Args); err != nil {
					c.Err(err)
				}
			},
		}
		if cmd.name == "config" {
			shellCmd.Completer = motorNames
		}
		shell.AddCmd(shellCmd)
	}

	return shell
}
