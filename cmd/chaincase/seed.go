package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	mnemonic    string
	password    string
	oldPassword string
	newPassword string
	confirmPwd  string

	seedGenCmd = &cobra.Command{
		Use:   "gen",
		Short: "generate a random mnemonic",
		Long: "this command lets you generate a new random 12-words mnemonic " +
			"to initialize a new wallet from scratch",
		RunE: seedGen,
	}
	seedSetCmd = &cobra.Command{
		Use:   "set",
		Short: "store the seed words",
		Long: "this command lets you store the given mnemonic (or let me " +
			"create one for you), encrypted with your choosen password",
		RunE: seedSet,
	}
	seedShowCmd = &cobra.Command{
		Use:   "show",
		Short: "show the seed words",
		Long:  "this command decrypts and prints the stored seed words",
		RunE:  seedShow,
	}
	seedChangePwdCmd = &cobra.Command{
		Use:   "changepassword",
		Short: "change the seed words password",
		Long:  "this command lets you change the encryption password of the seed words",
		RunE:  seedChangePwd,
	}
	seedMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "encrypt plaintext seed words",
		Long: "this command encrypts the seed words stored in plaintext by " +
			"older versions with the given password, typed twice",
		RunE: seedMigrate,
	}
	seedStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "get seed words status",
		Long: "this command tells whether seed words are stored and, if a " +
			"password is given, whether it's the right one",
		RunE: seedStatus,
	}
	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "manage the wallet seed words",
		Long: "this command lets you generate, store, read or change the " +
			"password of the wallet seed words",
	}
)

func init() {
	seedSetCmd.Flags().StringVar(
		&mnemonic, "mnemonic", "", "space separated word list as wallet seed",
	)
	seedSetCmd.Flags().StringVar(&password, "password", "", "encryption password")
	seedSetCmd.MarkFlagRequired("password")

	seedShowCmd.Flags().StringVar(&password, "password", "", "encryption password")
	seedShowCmd.MarkFlagRequired("password")

	seedStatusCmd.Flags().StringVar(&password, "password", "", "password to check")

	seedMigrateCmd.Flags().StringVar(&password, "password", "", "encryption password")
	seedMigrateCmd.Flags().StringVar(&confirmPwd, "confirm-password", "", "encryption password, again")
	seedMigrateCmd.MarkFlagRequired("password")
	seedMigrateCmd.MarkFlagRequired("confirm-password")

	seedChangePwdCmd.Flags().StringVar(&oldPassword, "old-password", "", "current password")
	seedChangePwdCmd.Flags().StringVar(&newPassword, "new-password", "", "new password")
	seedChangePwdCmd.MarkFlagRequired("old-password")
	seedChangePwdCmd.MarkFlagRequired("new-password")

	seedCmd.AddCommand(
		seedGenCmd, seedSetCmd, seedShowCmd, seedChangePwdCmd, seedMigrateCmd,
		seedStatusCmd,
	)
}

func seedGen(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	words, err := appCfg.SecretService().GenSeed(cmd.Context())
	if err != nil {
		printErr(err)
		return nil
	}
	return printJSON(map[string]string{"mnemonic": strings.Join(words, " ")})
}

func seedSet(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	svc := appCfg.SecretService()
	words := strings.Fields(mnemonic)
	if len(words) <= 0 {
		if words, err = svc.GenSeed(ctx); err != nil {
			printErr(err)
			return nil
		}
	}

	if err := svc.SetSeedWords(ctx, password, words); err != nil {
		printErr(err)
		return nil
	}
	return printJSON(map[string]string{
		"key":      svc.SeedWordsKey(),
		"mnemonic": strings.Join(words, " "),
	})
}

func seedShow(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	words, err := appCfg.SecretService().GetSeedWords(cmd.Context(), password)
	if err != nil {
		printErr(err)
		return nil
	}
	return printJSON(map[string]string{"mnemonic": strings.Join(words, " ")})
}

func seedChangePwd(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := appCfg.SecretService().ChangePassword(
		cmd.Context(), oldPassword, newPassword,
	); err != nil {
		printErr(err)
		return nil
	}

	fmt.Println("password changed")
	return nil
}

func seedMigrate(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := appCfg.SecretService().MigrateSeedWords(
		cmd.Context(), password, confirmPwd,
	); err != nil {
		printErr(err)
		return nil
	}

	fmt.Println("seed words encrypted")
	return nil
}

func seedStatus(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	svc := appCfg.SecretService()
	hasSeed, err := svc.HasSeedWords(ctx)
	if err != nil {
		printErr(err)
		return nil
	}

	status := map[string]interface{}{
		"key":      svc.SeedWordsKey(),
		"has_seed": hasSeed,
	}
	if !hasSeed {
		return printJSON(status)
	}

	needsMigration, err := svc.NeedsMigration(ctx)
	if err != nil {
		printErr(err)
		return nil
	}
	status["needs_migration"] = needsMigration
	if !needsMigration && len(password) > 0 {
		isValid, err := svc.IsPasswordValid(ctx, password)
		if err != nil {
			printErr(err)
			return nil
		}
		status["password_valid"] = isValid
	}
	return printJSON(status)
}
