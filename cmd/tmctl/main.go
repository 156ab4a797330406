// Command tmctl administers a testmanager-api deployment directly against its
// store: seeding users, clients, projects and tests, fixing claims and
// minting tokens.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	a := &app{}
	defer a.Close()
	if err := newCommand(a).Run(context.Background(), os.Args); err != nil {
		logrus.WithError(err).Error("Event ID: CLI-001, Description: command failed")
		a.Close()
		os.Exit(1)
	}
}
