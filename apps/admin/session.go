package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/core/session"
	"github.com/trezcool/masomoweb/storage/database"
)

const commandTimeout = 30 * time.Second

// inspectToken prints the claims of `token` and whether the web app would accept it now.
func (cli *commandLine) inspectToken(token string) error {
	claims, err := session.DecodeClaims(token)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "subject:  %s\n", claims.Subject)
	fmt.Fprintf(cli.out, "username: %s\n", claims.Username)
	fmt.Fprintf(cli.out, "email:    %s\n", claims.Email)
	fmt.Fprintf(cli.out, "roles:    %s\n", strings.Join(claims.Roles, ", "))
	if claims.ExpiresAt.IsZero() {
		fmt.Fprintln(cli.out, "expires:  never")
	} else {
		fmt.Fprintf(cli.out, "expires:  %s\n", claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if claims.Expired(cli.now()) {
		fmt.Fprintln(cli.out, "status:   expired")
	} else {
		fmt.Fprintln(cli.out, "status:   valid")
	}
	return nil
}

// evict clears the storage of a client: its next request starts unauthenticated.
func (cli *commandLine) evict(clientID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := cli.backend.Bucket(clientID).Clear(ctx); err != nil {
		return errors.Wrapf(err, "evicting client %s", clientID)
	}
	fmt.Fprintf(cli.out, "client %s evicted\n", clientID)
	return nil
}

func (cli *commandLine) purge(olderThan time.Duration) error {
	if cli.db == nil {
		return errNoDatabase
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	n, err := database.NewStore(cli.db).Purge(ctx, cli.now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d client(s) purged\n", n)
	return nil
}

// login signs in against the API and prints the issued token.
// With a client ID, the token is persisted the way the web app does on sign in.
func (cli *commandLine) login(uname, pwd, clientID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	resp, err := cli.api.Login(ctx, core.CleanString(uname), pwd)
	if err != nil {
		return err
	}
	claims, err := session.DecodeClaims(resp.Token)
	if err != nil {
		return err
	}

	if clientID != "" {
		store := cli.backend.Bucket(clientID)
		if err = store.Set(ctx, core.KeyToken, resp.Token); err != nil {
			return errors.Wrap(err, "persisting token")
		}
		if claims.Subject != "" {
			if err = store.Set(ctx, core.KeyUserID, claims.Subject); err != nil {
				return errors.Wrap(err, "persisting user id")
			}
		}
	}
	fmt.Fprintln(cli.out, resp.Token)
	return nil
}
