package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if user := a.session.User(); user != nil {
		return fmt.Sprintf("(%s)", user.Email)
	}
	return ""
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to LinkDeck CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	if a.isLoggedIn() {
		log.Printf("Restored session for %s", a.session.User().Email)
	}

	for {
		fmt.Printf("ld %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: whoami, update, passwd, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, exit")
			}

		case "register":
			a.Register(ctx)
		case "login":
			a.Login(ctx)
		case "whoami":
			a.Whoami(ctx)
		case "update":
			a.UpdateProfile(ctx)
		case "passwd":
			a.ChangePassword(ctx)
		case "logout":
			a.Logout(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
