// Command admin manages account groups and permissions from the shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"crowdfund-api/internal/app"
	"crowdfund-api/internal/config"
	"crowdfund-api/internal/platform/logging"
	mysqlClient "crowdfund-api/internal/platform/mysql"
	"crowdfund-api/internal/repository"
)

func main() {
	var username string
	var group string
	var codename string
	var permissionName string

	flag.StringVar(&username, "user", "", "username to modify")
	flag.StringVar(&group, "group", "", "add the user to this group (created when missing)")
	flag.StringVar(&codename, "permission", "", "grant the user this permission codename")
	flag.StringVar(&permissionName, "permission-name", "", "human readable permission name (default: codename)")
	flag.Parse()

	if username == "" || (group == "" && codename == "") {
		fmt.Fprintln(os.Stderr, "Error: -user and at least one of -group or -permission are required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config failed")
	}
	log := logging.New(cfg.Log.Level, os.Stderr)

	db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), log)
	if err != nil {
		log.WithError(err).Fatal("open mysql failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("auto migrate tables failed")
	}

	svc := app.NewAuthService(repository.NewUserRepository(db), app.AuthOptions{})
	entry := log.WithField("user", username)

	if group != "" {
		if err := svc.AssignGroup(ctx, username, group); err != nil {
			exit(entry, err, "assign group failed")
		}
		entry.WithField("group", group).Info("group assigned")
	}
	if codename != "" {
		if err := svc.GrantPermission(ctx, username, codename, permissionName); err != nil {
			exit(entry, err, "grant permission failed")
		}
		entry.WithField("permission", codename).Info("permission granted")
	}
}

func exit(entry *logrus.Entry, err error, msg string) {
	if errors.Is(err, app.ErrUserNotFound) {
		entry.Error("user not found")
		os.Exit(1)
	}
	entry.WithError(err).Error(msg)
	os.Exit(1)
}
