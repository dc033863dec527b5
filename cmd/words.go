package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoice-batch/internal/words"
)

// wordsCmd prints an amount in words, e.g.
//
//	invoicer words 1234567.89
//	Twelve Lakh Thirty Four Thousand Five Hundred Sixty Seven Rupees and Eighty Nine Paise
var wordsCmd = &cobra.Command{
	Use:   "words <amount>",
	Short: "Print an amount in words using the Indian numbering system",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[0], err)
		}
		if amount.IsNegative() {
			return fmt.Errorf("amount must not be negative: %s", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), words.AmountToWords(amount))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wordsCmd)
}
