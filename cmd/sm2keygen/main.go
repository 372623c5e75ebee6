package main

import (
	"fmt"
	"io/ioutil"

	log "github.com/sirupsen/logrus"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

func main() {
	dirKeys := "sm2keys"

	// Load the config, generate and save keys
	filePath := "cmd/sm2keygen/users.yaml"
	users, err := loadConfig(filePath)
	if err != nil {
		log.Fatalln(err)
	}

	wallets, err := generateWallets(dirKeys, users)
	if err != nil {
		log.Fatalln(err)
	}

	out, err := yaml.Marshal(wallets)
	if err != nil {
		log.Fatalln(err)
	}
	fmt.Print(string(out))
}

func loadConfig(filePath string) ([]string, error) {
	fileBytes, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}

	users := []string{}
	if err = yaml.Unmarshal(fileBytes, &users); err != nil {
		return nil, errors.Wrap(err, "cannot load config file")
	}

	return users, nil
}
