package cli

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/linkdeck/internal/common"
)

func (a *App) Login(ctx context.Context) {

	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(password)

	user, err := a.session.Login(ctx, email, string(password))
	if err != nil {
		if errors.Is(err, common.ErrorServerUnavailable) {
			log.Printf("Server unavailable, try again later")
		} else {
			log.Printf("Login unsuccessfull: %s", err.Error())
		}
		return
	}

	log.Printf("Logged in as %s", user.Email)
}

func (a *App) Register(ctx context.Context) {

	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	name, err := GetSimpleText(a.reader, "Enter display name (optional)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(password)

	user, err := a.session.Register(ctx, email, string(password), name)
	if err != nil {
		log.Printf("Registration unsuccessfull: %s", err.Error())
		return
	}

	log.Printf("Registered and logged in as %s", user.Email)
}

func (a *App) Logout(ctx context.Context) {
	a.session.Logout(ctx)
	log.Println("Logged out")
}
