package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/internal/scheduler/jobs"
)

// listedCmd represents the listed command
var listedCmd = &cobra.Command{
	Use:   "listed",
	Short: "상장 종목 관리 (TWSE)",
	Long: `TWSE 상장 종목표(ETF/주식)를 수집하거나 조회합니다.
상장일은 대만 종목 백테스트의 시작일 하한으로 사용됩니다.

Subcommands:
  fetch  - TWSE 상장 종목표 수집 후 저장
  show   - 저장된 상장 종목 조회

Example:
  go run ./cmd/divbt listed fetch
  go run ./cmd/divbt listed show --code 0050`,
}

var (
	listedFetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "상장 종목 수집",
		RunE:  runListedFetch,
	}

	listedShowCmd = &cobra.Command{
		Use:   "show",
		Short: "상장 종목 조회",
		RunE:  runListedShow,
	}

	listedCode string
)

func init() {
	rootCmd.AddCommand(listedCmd)
	listedCmd.AddCommand(listedFetchCmd)
	listedCmd.AddCommand(listedShowCmd)

	listedShowCmd.Flags().StringVar(&listedCode, "code", "", "종목 코드 (기본: 전체)")
}

func runListedFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	job := jobs.NewListedCompaniesJob(listedMarket, a.twseClient(), a.store, a.log)
	if err := job.Run(ctx); err != nil {
		PrintError(err.Error())
		return err
	}

	stored, err := a.store.ListedCompanies(ctx, listedMarket)
	if err != nil {
		return fmt.Errorf("read listed companies: %w", err)
	}
	PrintSuccess(fmt.Sprintf("%d listed companies stored", len(stored)))
	return nil
}

func runListedShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	companies, err := a.store.ListedCompanies(ctx, listedMarket)
	if err != nil {
		return fmt.Errorf("read listed companies: %w", err)
	}

	if listedCode != "" {
		companies = filterCompanies(companies, listedCode)
	}
	if len(companies) == 0 {
		PrintWarning("No listed companies found")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "code\tname\tlisted\tcategory\tcfi")
	for _, c := range companies {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Code, c.Name, c.StartDate.Format(contracts.DateLayout), c.Category, c.CFICode)
	}
	return tw.Flush()
}

func filterCompanies(companies []contracts.ListedCompany, code string) []contracts.ListedCompany {
	var out []contracts.ListedCompany
	for _, c := range companies {
		if c.Code == code {
			out = append(out, c)
		}
	}
	return out
}
