package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/localnerve/sheetsdb/tests/helpers"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var withAuthorizer bool
	flag.BoolVar(&withAuthorizer, "authz", false, "also start an Authorizer for the management API")
	flag.Parse()

	usage := `
Run the sheetsdb metadata database (and optionally Authorizer) in testcontainers,
with the environment variables from the .env file.

Usage:

testcontainers [-h] [-authz] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -authz -f /path/to/something/.env
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Infof("Loading environment variables from %s", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	} else {
		log.Info("No environment file specified, using current environment variables")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	started := make(chan *helpers.TestContainers, 1)
	go func() {
		testContainers, err := helpers.CreateAllTestContainers(nil, helpers.ContainerOptions{
			Authorizer: withAuthorizer,
		})
		if err != nil {
			log.Fatalf("Failed to create test containers: %v", err)
		}
		started <- testContainers
	}()

	var testContainers *helpers.TestContainers
	select {
	case testContainers = <-started:
		log.Info("Containers are running, press Ctrl+C to stop")
		sig := <-sigs
		log.Infof("Received signal: %v, terminating test containers...", sig)
	case sig := <-sigs:
		log.Infof("Received signal: %v before startup finished, waiting for containers...", sig)
		testContainers = <-started
	}

	testContainers.Terminate(nil)
}
