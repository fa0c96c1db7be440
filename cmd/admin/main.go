// Command admin grants or revokes the StudySync admin role. Signup always
// creates regular users, so this is the only way to make an admin.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/atinyakov/studysync/internal/config"
	"github.com/atinyakov/studysync/internal/db"
	"github.com/atinyakov/studysync/internal/repository"
	"github.com/atinyakov/studysync/internal/service"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags)

	// shares -d / DATABASE_DSN / config.json with the server
	options := config.Parse()
	if options.DatabaseDSN == "" {
		logger.Fatal("database dsn is required (-d or DATABASE_DSN)")
	}

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		logger.Fatal(err)
	}

	cli := commandLine{
		roles: service.NewAuthService(repository.NewPostgresAuthRepository(postgresDB), nil),
		out:   os.Stdout,
	}
	err = cli.run(append([]string{os.Args[0]}, flag.Args()...))
	_ = postgresDB.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("error: %s", err)
		}
		os.Exit(1)
	}
}
