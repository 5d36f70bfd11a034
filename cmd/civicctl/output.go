package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/civicwatch/civic-reports/pkg/client"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func (a *app) print(v any) error {
	switch a.format {
	case formatJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return a.printTable(v)
}

func (a *app) printTable(v any) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	switch v := v.(type) {
	case *client.User:
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
		printUserRow(tw, v)
	case []*client.User:
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
		for _, u := range v {
			printUserRow(tw, u)
		}
	case *client.Issue:
		fmt.Fprintf(tw, "ID\t%s\n", v.ID)
		fmt.Fprintf(tw, "TITLE\t%s\n", v.Title)
		fmt.Fprintf(tw, "CATEGORY\t%s\n", v.Category)
		fmt.Fprintf(tw, "STATUS\t%s\n", v.Status)
		fmt.Fprintf(tw, "LOCATION\t%.5f, %.5f %s\n", v.Location.Latitude, v.Location.Longitude, v.Location.Address)
		fmt.Fprintf(tw, "REPORTED\t%s by %s\n", v.CreatedAt.Format(time.DateTime), v.UserID)
		fmt.Fprintf(tw, "DESCRIPTION\t%s\n", v.Description)
		for _, h := range v.StatusHistory {
			fmt.Fprintf(tw, "HISTORY\t%s  %-11s %s %s\n", h.Timestamp.Format(time.DateTime), h.Status, h.ChangedBy, h.Note)
		}
	case *client.IssuePage:
		fmt.Fprintln(tw, "ID\tSTATUS\tCATEGORY\tTITLE\tCREATED")
		for _, i := range v.Data {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", i.ID, i.Status, i.Category, truncate(i.Title, 40), i.CreatedAt.Format(time.DateOnly))
		}
		tw.Flush()
		fmt.Fprintf(a.out, "page %d of %d (%d total)\n", v.Pagination.Page, v.Pagination.TotalPages, v.Pagination.Total)
	default:
		return fmt.Errorf("no table layout for %T", v)
	}
	return nil
}

func printUserRow(tw *tabwriter.Writer, u *client.User) {
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
