// Package setup runs the first-start profile wizard.
package setup

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/chiptrader/internal/domain"
	"github.com/vadiminshakov/chiptrader/internal/storage/profile"
	"golang.org/x/crypto/bcrypt"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the profile wizard and persists the result. This is not a
// security boundary: the passcode only keeps a shared machine honest.
func RunTUI(store *profile.Store) error {
	var (
		name     string
		email    string
		passcode string
		confirm  bool
	)

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("CHIPTRADER SETUP"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Paper trading with 100,000 starting chips. No real money involved.\n"))

	fmt.Println(stepStyle.Render("STEP 1: WHO ARE YOU"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Display Name").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Email").
				Description("Display only, nothing is sent anywhere").
				Value(&email),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("CHIPTRADER SETUP"))
	fmt.Println(stepStyle.Render("STEP 2: PASSCODE"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Passcode").
				Description("Optional, leave empty to skip").
				Value(&passcode).
				EchoMode(huh.EchoModePassword),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("CHIPTRADER SETUP"))
	fmt.Println(stepStyle.Render("STEP 3: CONFIRM"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Create profile for %s?", name)).
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return errors.New("setup cancelled")
	}

	p := domain.Profile{
		Name:          strings.TrimSpace(name),
		Email:         strings.TrimSpace(email),
		JoinDate:      time.Now(),
		Authenticated: true,
	}
	if passcode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
		if err != nil {
			return errors.Wrap(err, "hash passcode")
		}
		p.PasscodeHash = string(hash)
	}

	if err := store.Save(p); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("\nProfile saved. Happy trading!"))
	return nil
}

// VerifyPasscode checks the entered passcode against the stored hash.
func VerifyPasscode(p *domain.Profile, passcode string) bool {
	if p == nil || p.PasscodeHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(p.PasscodeHash), []byte(passcode)) == nil
}

const unlockAttempts = 3

// Unlock prompts for the profile passcode when one is set. Profiles without
// a passcode pass through silently.
func Unlock(p *domain.Profile) error {
	if p == nil || p.PasscodeHash == "" {
		return nil
	}

	for attempt := 0; attempt < unlockAttempts; attempt++ {
		var passcode string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title(fmt.Sprintf("Passcode for %s", p.Name)).
					Value(&passcode).
					EchoMode(huh.EchoModePassword),
			),
		).Run()
		if err != nil {
			return err
		}
		if VerifyPasscode(p, passcode) {
			return nil
		}
		fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Wrong passcode, try again."))
	}
	return errors.New("too many failed passcode attempts")
}
