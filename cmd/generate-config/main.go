package main

import (
	"flag"
	"io"
	"os"

	"fhepoker-client/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

var output = flag.String("o", "", "write the configuration to a file instead of stdout")

func main() {
	flag.Parse()

	var w io.Writer = os.Stdout
	if *output != "" {
		file, err := os.OpenFile(*output, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
		if err != nil {
			logrus.WithError(err).Fatal("could not create config file")
		}
		defer file.Close()
		w = file
	}

	if err := yaml.NewEncoder(w).Encode(config.DefaultConfig()); err != nil {
		logrus.WithError(err).Fatal("could not write config")
	}
}
