package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "KAWAZANYO_"

type Application struct {
	Host     string   `koanf:"host"`
	Port     int      `koanf:"port"`
	Database Database `koanf:"db"`
	Budget   Budget   `koanf:"budget"`
	Google   Google   `koanf:"google"`
}

type Database struct {
	// Driver is either postgres or sqlite.
	Driver string `koanf:"driver"`
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
	// Path of the SQLite database file, kawazanyo.db unless configured. Setting it to an
	// empty string keeps the database in memory, which tests do.
	Path string `koanf:"path"`
}

// Budget holds the defaults used when no state is stored yet.
type Budget struct {
	ComparisonSpan int    `koanf:"comparisonspan"`
	BaseName       string `koanf:"basename"`
	Seed           bool   `koanf:"seed"`
}

type Google struct {
	ClientId      string `koanf:"clientid"`
	ClientSecret  string `koanf:"clientsecret"`
	SpreadsheetId string `koanf:"spreadsheetid"`
	SheetName     string `koanf:"sheetname"`
}

func Defaults() Application {
	return Application{
		Host: "http://localhost:3000",
		Port: 8181,
		Database: Database{
			Driver: "postgres",
			Host:   "localhost",
			Port:   5432,
			User:   "kawazanyo",
			Pass:   "",
			Name:   "kawazanyo",
			Schema: "kawazanyo",
			Path:   "kawazanyo.db",
		},
		Budget: Budget{
			ComparisonSpan: 24,
			BaseName:       "Current",
			Seed:           true,
		},
		Google: Google{
			SheetName: "Projection",
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
