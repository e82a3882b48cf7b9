package commands

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type accountAmount struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show goal, deadline and raised amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap struct {
				Admin            string          `json:"admin"`
				Goal             decimal.Decimal `json:"goal"`
				Deadline         string          `json:"deadline"`
				RaisedAmount     decimal.Decimal `json:"raised_amount"`
				NoOfContributors int             `json:"no_of_contributors"`
				State            string          `json:"state"`
				GoalReached      bool            `json:"goal_reached"`
			}
			if err := client.get("/escrow", nil, &snap); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "admin:        %s\n", snap.Admin)
			fmt.Fprintf(out, "goal:         %s\n", snap.Goal)
			fmt.Fprintf(out, "deadline:     %s\n", snap.Deadline)
			fmt.Fprintf(out, "raised:       %s\n", snap.RaisedAmount)
			fmt.Fprintf(out, "contributors: %d\n", snap.NoOfContributors)
			fmt.Fprintf(out, "state:        %s (goal reached: %t)\n", snap.State, snap.GoalReached)
			return nil
		},
	}
}

func contributeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contribute <account> <amount>",
		Short: "Contribute to the escrow before the deadline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			var res accountAmount
			if err := client.post("/escrow/contribute", accountAmount{AccountID: args[0], Amount: amount}, &res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now holds %s\n", res.AccountID, res.Amount)
			return nil
		},
	}
}

func refundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund <account>",
		Short: "Reclaim a contribution after the deadline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res accountAmount
			if err := client.post("/escrow/refund", map[string]string{"account_id": args[0]}, &res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refunded %s to %s\n", res.Amount, res.AccountID)
			return nil
		},
	}
}

func fundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fund <account> <amount>",
		Short: "Credit an account from the mint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			var res accountAmount
			if err := client.post("/accounts/fund", accountAmount{AccountID: args[0], Amount: amount}, &res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s balance %s\n", res.AccountID, res.Amount)
			return nil
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show an account's spendable balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				AccountID string          `json:"account_id"`
				Balance   decimal.Decimal `json:"balance"`
			}
			if err := client.get("/accounts/balance", url.Values{"account_id": {args[0]}}, &res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s balance %s\n", res.AccountID, res.Balance)
			return nil
		},
	}
}

func advanceCmd() *cobra.Command {
	var seconds int64
	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Fast-forward a manual-clock server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Now   string `json:"now"`
				State string `json:"state"`
			}
			if err := client.post("/clock/advance", map[string]int64{"seconds": seconds}, &res); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "now %s, escrow %s\n", res.Now, res.State)
			return nil
		},
	}
	cmd.Flags().Int64Var(&seconds, "seconds", 0, "seconds to advance")
	return cmd
}
