package issues

import (
	"fmt"
	"strings"

	"nstools/lib/nsapi"
	"nstools/lib/sheet"
)

const cell = `[td style="text-align:center;border:1px solid rgb(255, 255, 255);padding:3px;"]`

type ReportOptions struct {
	// Wage is paid per issue answered.
	Wage int
	// Currency is the BBCode shown after every amount.
	Currency string
	// ForumNames maps masters (clean format) to forum usernames, masters
	// without a username are named by nation and not paid.
	ForumNames map[string]string
	// Banner is an optional image url shown above the report.
	Banner string
}

// ForumNamesFromRows reads "nation<TAB>username" rows, rows without a
// username are skipped.
func ForumNamesFromRows(rows [][]string) map[string]string {
	out := map[string]string{}
	for _, row := range rows {
		username := sheet.Field(row, 1)
		if username == "" {
			continue
		}
		out[nsapi.CleanFormat(sheet.Field(row, 0))] = username
	}
	return out
}

// ReportPath returns where the report of a period is stored, relative to
// the report directory.
func ReportPath(p Period) string {
	return fmt.Sprintf("issuePayoutReport_%s.txt", p.Month.Format("2006-01"))
}

// Report renders a BBCode payout report for the counts of a period.
func Report(p Period, counts []Count, opts ReportOptions) string {
	month := p.Month.Format("January 2006")

	var out strings.Builder
	if opts.Banner != "" {
		fmt.Fprintf(&out, "[div align=\"center\"][img style=\"max-width:20%%;\" src=%q][/div]\n\n", opts.Banner)
	}
	fmt.Fprintf(&out, "The following payments were earned in %s, paid at a rate of %d %s per issue answered.\n\n",
		month, opts.Wage, opts.Currency)

	out.WriteString("[div align=\"center\"]\n[table style=\"text-align:center;\"][tbody]\n")
	writeRow(&out, "[i]Nation[/i]", "[i]Issues Answered[/i]", "[i]Wage[/i]")

	active := 0
	total := 0
	var inactive []string
	for _, c := range counts {
		tag := c.Master
		payout := "N/A"
		if username, ok := opts.ForumNames[c.Master]; ok {
			tag = "@" + username
			payout = fmt.Sprint(c.Issues * opts.Wage)
		}
		total += c.Issues
		if c.Issues <= 0 {
			inactive = append(inactive, tag)
			continue
		}
		active++
		writeRow(&out, tag, fmt.Sprint(c.Issues), payout+" "+opts.Currency)
	}
	out.WriteString("[/tbody][/table]\n")

	out.WriteString("[table][tbody]\n")
	writeRow(&out, "[i]Total Number of Active Members[/i]", fmt.Sprintf("[i]Total %s Pay[/i]", p.Month.Format("January")))
	writeRow(&out, fmt.Sprintf("%d farmers", active), fmt.Sprintf("%d %s", total*opts.Wage, opts.Currency))
	out.WriteString("[/tbody][/table]\n\n")

	out.WriteString("The following members were moved to inactive status:\n")
	out.WriteString(strings.Join(inactive, " "))
	out.WriteString("\n[/div]\n")
	return out.String()
}

func writeRow(out *strings.Builder, cells ...string) {
	out.WriteString("[tr]\n")
	for _, c := range cells {
		fmt.Fprintf(out, "    %s%s[/td]\n", cell, c)
	}
	out.WriteString("[/tr]\n")
}
