package cli

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fixlet/internal/fixlet/quota"
)

func newQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show today's remaining repair invocations",
		Args:  cobra.NoArgs,
		RunE:  runQuota,
	}
}

func runQuota(cmd *cobra.Command, args []string) error {
	quotaPath, err := cfg.QuotaFilePath()
	if err != nil {
		return err
	}

	guard := quota.NewGuard(quotaPath, cfg.Quota.DailyLimit)

	return json.NewEncoder(os.Stdout).Encode(struct {
		Day       string `json:"day"`
		Remaining int    `json:"remaining"`
		Limit     int    `json:"limit"`
	}{
		Day:       time.Now().Format("2006-01-02"),
		Remaining: guard.Remaining(),
		Limit:     cfg.Quota.DailyLimit,
	})
}
