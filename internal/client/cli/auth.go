package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/cryptox"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// Login prompts the user for the account parameters and stores the session.
// The device id is generated once and kept across logins on this device.
//
// The bucket key never leaves the device: it is derived from the passphrase
// with the bucket id as salt, and the passphrase is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	userID, err := getSimpleText(a.reader, "Enter user id", os.Stdout)
	if err != nil {
		return err
	}

	bucket, err := getSimpleText(a.reader, "Enter bucket id", os.Stdout)
	if err != nil {
		return err
	}

	token, err := getSecret("Enter access token", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(token)

	passphrase, err := getSecret("Enter bucket passphrase", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passphrase)

	deviceID := uuid.NewString()
	if a.account != nil && a.account.DeviceID != "" {
		deviceID = a.account.DeviceID
	}

	account := &models.Account{
		UserID:      userID,
		DeviceID:    deviceID,
		Bucket:      bucket,
		AccessToken: string(token),
		BucketKey:   cryptox.DeriveBucketKey(passphrase, bucket),
	}

	if err := a.repos.Session.SetAccount(ctx, account); err != nil {
		return err
	}

	a.account = account
	a.catalog.SetAccessToken(account.AccessToken)

	fmt.Println("Success!")
	return nil
}

// Logout removes the stored session. The ledger and cached media stay on
// disk; use "clear" to wipe them too.
func (a *App) Logout(ctx context.Context) error {
	if err := a.repos.Session.Clear(ctx); err != nil {
		return err
	}
	a.account = nil
	a.catalog.SetAccessToken("")
	fmt.Println("Logged out")
	return nil
}
