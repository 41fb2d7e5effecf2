package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/studybunny/carrot/internal/domain"
)

// ─── Wallet CLI ─────────────────────────────────────────────────────────────
// Each command opens the local store, runs one wallet operation and exits.

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(hydrateCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(earnCmd)
	rootCmd.AddCommand(spendCmd)
	rootCmd.AddCommand(purchaseCmd)
	rootCmd.AddCommand(achievementsCmd)
	rootCmd.AddCommand(resetCmd)

	statsCmd.Flags().IntP("limit", "n", 10, "Transactions to show")
	purchaseCmd.Flags().String("ref", "", "Payment gateway reference (generated when empty)")
	resetCmd.Flags().Bool("yes", false, "Confirm wiping all CC, counters and achievements")
}

// ─── balance / stats ────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the current CC balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer d.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "🥕 %s CC\n", domain.FormatAmount(d.Wallet.Balance()))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show balance, counters, streak and recent transactions",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	st := d.Wallet.Stats()
	snap := d.Wallet.Snapshot()
	limit, _ := cmd.Flags().GetInt("limit")
	txs := snap.Transactions
	if limit >= 0 && limit < len(txs) {
		txs = txs[:limit]
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Balance:      %s CC\n", domain.FormatAmount(st.Balance))
	fmt.Fprintf(out, "Last active:  %s (streak %d days)\n", st.LastActiveDate, st.StreakDays)
	fmt.Fprintf(out, "Achievements: %d unlocked\n", len(st.Achievements))
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTIVITY\tTOTAL\tTODAY")
	for _, kind := range domain.ActivityKinds() {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", kind, st.Counters[kind], st.Daily.Counts[kind])
	}
	fmt.Fprintf(tw, "hydration\t-\t%d\n", st.Daily.Hydration)
	tw.Flush()

	if len(txs) == 0 {
		fmt.Fprintln(out, "\nNo transactions yet.")
		return nil
	}
	fmt.Fprintln(out)
	printTransactions(out, txs)
	return nil
}

func printTransactions(out io.Writer, txs []domain.Transaction) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTYPE\tAMOUNT\tREASON")
	for _, tx := range txs {
		sign := "+"
		if tx.Type == domain.TxSpent || tx.Type == domain.TxPenalty {
			sign = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s%s\t%s\n",
			tx.Timestamp.Local().Format("2006-01-02 15:04"), tx.Type, sign, domain.FormatAmount(tx.Amount), tx.Reason)
	}
	tw.Flush()
}

// ─── track / hydrate / quiz ─────────────────────────────────────────────────

var trackCmd = &cobra.Command{
	Use:   "track KIND AMOUNT",
	Short: "Report productive activity",
	Long: `Report an increment of activity. KIND is one of:
  tasks_completed, words_written, focus_minutes, flashcards_correct, quiz_correct
AMOUNT is how much was done since the last report, not a running total.`,
	Args: cobra.ExactArgs(2),
	RunE: runTrack,
}

func runTrack(cmd *cobra.Command, args []string) error {
	kind, err := domain.ParseActivityKind(args[0])
	if err != nil {
		return err
	}
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", args[1], err)
	}

	d, err := openDaemon(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	award, err := d.Wallet.TrackActivity(cmd.Context(), kind, delta)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if award.Earned() {
		fmt.Fprintf(out, "🥕 +%s CC earned! %s\n", domain.FormatAmount(award.Amount), award.Description)
	} else {
		fmt.Fprintf(out, "Recorded %d %s (total %d)\n", delta, kind, award.After)
	}
	fmt.Fprintf(out, "Balance: %s CC\n", domain.FormatAmount(d.Wallet.Balance()))
	return nil
}

var hydrateCmd = &cobra.Command{
	Use:   "hydrate [GLASSES]",
	Short: "Log glasses of water (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		units := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("glasses %q: %w", args[0], err)
			}
			units = n
		}
		d, err := openDaemon(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.Wallet.TrackHydration(cmd.Context(), units); err != nil {
			return err
		}
		st := d.Wallet.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "💧 %d glasses today", st.Daily.Hydration)
		if st.Daily.HydrationBonusPaid {
			fmt.Fprint(cmd.OutOrStdout(), " (daily goal reached)")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nBalance: %s CC\n", domain.FormatAmount(st.Balance))
		return nil
	},
}

var quizCmd = &cobra.Command{
	Use:   "quiz CORRECT TOTAL",
	Short: "Record a finished quiz",
	Long: `Record a finished quiz and report its correct answers as quiz_correct
activity. A perfect score counts towards the Perfect Score achievement.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		correct, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("correct %q: %w", args[0], err)
		}
		total, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("total %q: %w", args[1], err)
		}
		d, err := openDaemon(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.Wallet.RecordQuizResult(cmd.Context(), correct, total); err != nil {
			return err
		}
		if correct > 0 {
			if _, err := d.Wallet.TrackQuizCorrect(cmd.Context(), int64(correct)); err != nil {
				return err
			}
		}
		out := cmd.OutOrStdout()
		if correct == total {
			fmt.Fprintln(out, "🏆 Perfect score!")
		}
		fmt.Fprintf(out, "Quiz %d/%d recorded. Balance: %s CC\n", correct, total, domain.FormatAmount(d.Wallet.Balance()))
		return nil
	},
}

// ─── earn / spend / purchase ────────────────────────────────────────────────

var earnCmd = &cobra.Command{
	Use:   "earn AMOUNT REASON",
	Short: "Credit a bonus",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("amount %q: %w", args[0], err)
		}
		d, err := openDaemon(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		tx, err := d.Wallet.Earn(cmd.Context(), amount, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🥕 +%s CC earned! %s\nBalance: %s CC\n",
			domain.FormatAmount(tx.Amount), tx.Reason, domain.FormatAmount(d.Wallet.Balance()))
		return nil
	},
}

var spendCmd = &cobra.Command{
	Use:   "spend AMOUNT REASON",
	Short: "Spend CC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("amount %q: %w", args[0], err)
		}
		d, err := openDaemon(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		tx, err := d.Wallet.Spend(cmd.Context(), amount, args[1])
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return fmt.Errorf("%w: you have %s CC", err, domain.FormatAmount(d.Wallet.Balance()))
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "-%s CC spent on %s\nBalance: %s CC\n",
			domain.FormatAmount(tx.Amount), tx.Reason, domain.FormatAmount(d.Wallet.Balance()))
		return nil
	},
}

var purchaseCmd = &cobra.Command{
	Use:   "purchase PACKAGE",
	Short: "Credit a confirmed purchase (small, medium or large)",
	Long: `Credit a CC package after the payment gateway confirmed the charge.
Pass the gateway's reference with --ref so a replayed confirmation is
rejected instead of paid twice.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("ref")
		if ref == "" {
			ref = "cli-" + uuid.NewString()
		}
		d, err := openDaemon(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		tx, err := d.Wallet.Purchase(cmd.Context(), domain.PurchaseConfirmation{PackageID: args[0], Ref: ref})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Purchased %s CC (%s, ref %s)\nBalance: %s CC\n",
			tx.Amount.String(), tx.Reason, ref, domain.FormatAmount(d.Wallet.Balance()))
		return nil
	},
}

// ─── achievements / reset ───────────────────────────────────────────────────

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "List achievements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, a := range d.Wallet.Achievements() {
			mark := "🔒"
			if a.Unlocked {
				mark = a.Icon
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, a.Name, a.Description)
		}
		return tw.Flush()
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe balance, counters, history and achievements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("reset deletes all CC and progress; rerun with --yes to confirm")
		}
		d, err := openDaemon(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		d.Wallet.Reset(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "CC system reset!")
		return nil
	},
}
