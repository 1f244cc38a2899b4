package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/linkdeck/internal/common"
)

func (a *App) Whoami(ctx context.Context) {

	user, err := a.session.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) {
			log.Println("Session expired, please log in again")
		} else {
			log.Printf("error: %v", err)
		}
		return
	}

	fmt.Printf("Email: %s\n", user.Email)
	if user.Name != "" {
		fmt.Printf("Name:  %s\n", user.Name)
	}
	if user.LastLoginAt != nil {
		fmt.Printf("Last login: %s\n", user.LastLoginAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func (a *App) UpdateProfile(ctx context.Context) {

	name, err := GetSimpleText(a.reader, "New display name (empty to keep)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	avatar, err := GetSimpleText(a.reader, "New avatar URL (empty to keep)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	var namePtr, avatarPtr *string
	if name != "" {
		namePtr = &name
	}
	if avatar != "" {
		avatarPtr = &avatar
	}
	if namePtr == nil && avatarPtr == nil {
		log.Println("Nothing to update")
		return
	}

	user, err := a.session.UpdateProfile(ctx, namePtr, avatarPtr)
	if err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) {
			log.Println("Session expired, please log in again")
		} else {
			log.Printf("Update unsuccessfull: %s", err.Error())
		}
		return
	}

	log.Printf("Profile updated for %s", user.Email)
}

func (a *App) ChangePassword(ctx context.Context) {

	current, err := GetPassword("Current password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(current)

	newPassword, err := GetPassword("New password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(newPassword)

	if err := a.session.ChangePassword(ctx, string(current), string(newPassword)); err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) {
			log.Println("Session expired, please log in again")
		} else {
			log.Printf("Password change unsuccessfull: %s", err.Error())
		}
		return
	}

	log.Println("Password changed")
}
