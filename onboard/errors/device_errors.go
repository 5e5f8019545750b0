package errors

import "fmt"

type MotorNameError struct {
	Name string
}

func (err MotorNameError) Error() string {
	return fmt.Sprintf("no such motor %s", err.Name)
}

type ConfigVersionError struct {
	Have string
	Want string
}

func (err ConfigVersionError) Error() string {
	if len(err.Have) == 0 {
		err.Have = "UNKNOWN"
	}

	return fmt.Sprintf("incompatible config; version %s does not satisfy %s", err.Have, err.Want)
}
