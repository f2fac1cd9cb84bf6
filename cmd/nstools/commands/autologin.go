package commands

import (
	"fmt"

	"nstools/lib/credentials"
	"nstools/lib/osutil"
	"nstools/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	autologinPlain  *bool
	autologinOutput *string
)

func init() {
	autologinPlain = autologinCmd.Flags().Bool("plain", false, "Secrets are plaintext passwords rather than autologin keys.")
	autologinOutput = autologinCmd.Flags().StringP("output", "o", "", "Write 'nation,autologin' lines of successful logins to this file.")

	rootCmd.AddCommand(autologinCmd)
	rootCmd.AddCommand(loginCmd)
}

var autologinCmd = &cobra.Command{
	Use:   "autologin [file]",
	Short: "Logs in every nation of a 'nation,secret' list, reading stdin without a file.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := openInput(args)
		entries, err := credentials.Parse(in)
		in.Close()
		if err != nil {
			serviceutil.Fatal("failed to read credentials", err)
		}

		results, err := credentials.LoginAll(cmd.Context(), apiClient(cmd), entries, *autologinPlain)
		if err != nil {
			serviceutil.Fatal("login interrupted", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Nation", "Region", "WA", "Status"})
		failed := 0
		for _, r := range results {
			if !r.OK() {
				failed++
				t.AppendRow(table.Row{r.Nation, "", "", r.Err.Error()})
				continue
			}
			wa := "No"
			if r.WA {
				wa = "Yes"
			}
			t.AppendRow(table.Row{r.Nation, r.Region, wa, "OK"})
		}
		t.AppendFooter(table.Row{"", "", "Failed", failed})
		t.Render()

		if *autologinOutput != "" {
			out := openOutput(*autologinOutput)
			err = credentials.WriteAutologins(out, results)
			if err != nil {
				serviceutil.Fatal("failed to write autologins", err)
			}
			closeOutput(out)
		}
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Prompts for a nation and its password and prints the autologin key.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		prompter := osutil.StdPrompter()
		nation, err := prompter.Line("Nation: ")
		if err != nil {
			serviceutil.Fatal("failed to read nation", err)
		}
		password, err := prompter.Password("Password: ")
		if err != nil {
			serviceutil.Fatal("failed to read password", err)
		}

		result := credentials.Login(cmd.Context(), apiClient(cmd), credentials.Entry{
			Nation: nation,
			Secret: password,
		}, true)
		if !result.OK() {
			serviceutil.Fatal("login failed", result.Err)
		}
		fmt.Println(result.Autologin)
	},
}
