// Command wizard is a terminal rendition of the three-step billing flow:
// billing info, card entry, confirmation. It drives the REST API and keeps
// only ephemeral state between steps. Card confirmation normally happens in
// the browser against the setup intent's client secret; here a pre-confirmed
// payment method id (e.g. a stripe test method like pm_card_visa) is entered
// directly.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/prasetya/cardvault/internal/domain/entity"
	"github.com/prasetya/cardvault/internal/wizard"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "cardvault server base URL")
	flag.Parse()

	in := bufio.NewReader(os.Stdin)
	ctx := context.Background()
	client := wizard.NewClient(*baseURL)

	if err := loginOrRegister(ctx, client, in, os.Stdout); err != nil {
		fail("login: %v", err)
	}
	fmt.Println("logged in")

	w := wizard.New(client)
	for w.Step() != wizard.StepDone {
		switch w.Step() {
		case wizard.StepBilling:
			billing := entity.BillingInfo{
				Address:    prompt(in, "address: "),
				City:       prompt(in, "city: "),
				State:      prompt(in, "state: "),
				PostalCode: prompt(in, "postal code: "),
			}
			if err := w.SubmitBilling(ctx, billing); err != nil {
				fmt.Printf("billing step failed: %v\n", err)
				continue
			}
			fmt.Printf("customer ready: %s\n", w.CustomerID)

		case wizard.StepCard:
			if w.ClientSecret == "" {
				if err := w.BeginCardEntry(ctx); err != nil {
					fmt.Printf("card step failed: %v\n", err)
					continue
				}
				fmt.Printf("setup intent client secret: %s\n", w.ClientSecret)
			}
			pm := prompt(in, "confirmed payment method id: ")
			if err := w.ConfirmCard(ctx, pm); err != nil {
				fmt.Printf("card step failed: %v\n", err)
				continue
			}
			fmt.Printf("card on file ending in %s\n", w.Last4)

		case wizard.StepConfirm:
			amtStr := prompt(in, "charge amount in cents (0 to skip): ")
			amount, err := strconv.ParseInt(amtStr, 10, 64)
			if err != nil {
				fmt.Println("enter a number")
				continue
			}
			status, err := w.Finish(ctx, amount, "")
			if err != nil {
				fmt.Printf("confirmation failed: %v\n", err)
				continue
			}
			fmt.Printf("flow complete: %s\n", status)
		}
	}
}

// account is the slice of the client the login loop needs.
type account interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, name, email, password string) error
}

// loginOrRegister prompts for credentials until a login succeeds. The server
// does not reveal whether a failed login means a wrong password or a missing
// account, so registration is offered as a choice rather than assumed.
func loginOrRegister(ctx context.Context, c account, in *bufio.Reader, out io.Writer) error {
	for {
		email := prompt(in, "email: ")
		password := prompt(in, "password: ")
		err := c.Login(ctx, email, password)
		if err == nil {
			return nil
		}
		fmt.Fprintf(out, "login failed: %v\n", err)
		if !strings.EqualFold(prompt(in, "register a new account with this email? [y/N]: "), "y") {
			continue
		}
		name := prompt(in, "name: ")
		if err := c.Register(ctx, name, email, password); err != nil {
			fmt.Fprintf(out, "register failed: %v\n", err)
			continue
		}
		return c.Login(ctx, email, password)
	}
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
