package twse

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"github.com/wonny/divbt/backend/internal/contracts"
	"github.com/wonny/divbt/backend/pkg/config"
	"github.com/wonny/divbt/backend/pkg/httputil"
	"github.com/wonny/divbt/backend/pkg/logger"
)

// listingLayout is the date format of the listing date column
const listingLayout = "2006/01/02"

// codeNameSep separates code and name in the first column (full-width space)
const codeNameSep = "　"

// equityCFI keeps common shares and ETFs
var equityCFI = regexp.MustCompile(`^(CEO|ESV)`)

// Client scrapes the TWSE listed securities page
// ⭐ SSOT: 상장 종목 목록은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	listedURL  string
}

// NewClient creates a new TWSE client
func NewClient(httpClient *httputil.Client, cfg config.TWSEConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("provider", "twse"),
		listedURL:  cfg.ListedURL,
	}
}

// FetchListedCompanies returns listed companies and ETFs
func (c *Client) FetchListedCompanies(ctx context.Context) ([]contracts.ListedCompany, error) {
	body, err := c.httpClient.GetBody(ctx, c.listedURL)
	if err != nil {
		return nil, fmt.Errorf("twse listed page: %w", err)
	}

	html, err := decodeBig5(body)
	if err != nil {
		return nil, fmt.Errorf("decode big5: %w", err)
	}

	companies, err := ParseListed(html)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(companies)).Info("Fetched listed companies")
	return companies, nil
}

// ParseListed extracts equity rows from the listed securities table.
// Rows without a name, with an unparsable listing date, or with a
// non-equity CFI code are skipped.
func ParseListed(html []byte) ([]contracts.ListedCompany, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var companies []contracts.ListedCompany
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 6 {
			return
		}

		cell := func(i int) string {
			return strings.TrimSpace(cells.Eq(i).Text())
		}

		code, name, ok := splitCodeName(cell(0))
		if !ok {
			return
		}

		cfi := cell(5)
		if !equityCFI.MatchString(cfi) {
			return
		}

		listed, err := time.Parse(listingLayout, cell(2))
		if err != nil {
			return
		}

		companies = append(companies, contracts.ListedCompany{
			Code:      code,
			Name:      name,
			StartDate: listed,
			Category:  cell(4),
			CFICode:   cfi,
		})
	})

	return companies, nil
}

func splitCodeName(s string) (string, string, bool) {
	parts := strings.SplitN(s, codeNameSep, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	code := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if code == "" || name == "" {
		return "", "", false
	}
	return code, name, true
}

func decodeBig5(body []byte) ([]byte, error) {
	out, _, err := transform.Bytes(traditionalchinese.Big5.NewDecoder(), body)
	return out, err
}
