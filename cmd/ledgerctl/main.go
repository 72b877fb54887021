// Command ledgerctl is a small HTTP client for a running splitledger API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"
)

type globals struct {
	Server string `help:"Base URL of the splitledger API." default:"http://localhost:8080" env:"LEDGER_SERVER"`
}

func (g *globals) get(path string, out any) error {
	resp, err := http.Get(g.Server + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (g *globals) post(path, contentType string, body io.Reader, out any) error {
	resp, err := http.Post(g.Server+path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (g *globals) postJSON(path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return g.post(path, "application/json", bytes.NewReader(payload), out)
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

type UploadCmd struct {
	File  string `help:"CSV file to ingest." arg:"" type:"existingfile"`
	Async bool   `help:"Queue the ingestion instead of running it inline."`
}

func (cmd *UploadCmd) Run(g *globals) error {
	data, err := os.ReadFile(cmd.File)
	if err != nil {
		return err
	}

	path := "/api/upload"
	if cmd.Async {
		path = "/api/upload/async"
	}

	var result map[string]any
	if err := g.post(path, "text/csv", bytes.NewReader(data), &result); err != nil {
		return err
	}

	if cmd.Async {
		fmt.Printf("queued job %v\n", result["job_id"])
		return nil
	}
	fmt.Printf("parsed=%v newlyInserted=%v deduplicated=%v rowErrors=%v\n",
		result["parsed"], result["newlyInserted"], result["deduplicated"], result["rowErrors"])
	return nil
}

type PeopleListCmd struct{}

func (cmd *PeopleListCmd) Run(g *globals) error {
	var people []struct {
		Name           string `json:"name"`
		Email          string `json:"email"`
		AccountNumbers []int  `json:"accountNumbers"`
	}
	if err := g.get("/api/people", &people); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEMAIL\tACCOUNTS")
	for _, p := range people {
		fmt.Fprintf(w, "%s\t%s\t%v\n", p.Name, p.Email, p.AccountNumbers)
	}
	return w.Flush()
}

type PeopleAddCmd struct {
	Name     string `help:"Display name." required:""`
	Email    string `help:"Email address, also the identity key." required:""`
	Accounts []int  `help:"Account numbers owned by this person."`
}

func (cmd *PeopleAddCmd) Run(g *globals) error {
	body := map[string]any{
		"name":           cmd.Name,
		"email":          cmd.Email,
		"accountNumbers": cmd.Accounts,
	}
	if err := g.postJSON("/api/people", body, nil); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", cmd.Email)
	return nil
}

type PeopleCmd struct {
	List PeopleListCmd `cmd:"" help:"List registered people." default:"1"`
	Add  PeopleAddCmd  `cmd:"" help:"Register or update a person."`
}

type CardsListCmd struct{}

func (cmd *CardsListCmd) Run(g *globals) error {
	var cards []struct {
		Name           string `json:"name"`
		AccountNumber  int    `json:"accountNumber"`
		CurrentBalance string `json:"currentBalance"`
		CreditLimit    string `json:"creditLimit"`
		Utilization    string `json:"utilization"`
		LastReconciled string `json:"lastReconciled"`
	}
	if err := g.get("/api/cards", &cards); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tACCOUNT\tBALANCE\tLIMIT\tUTILIZATION\tRECONCILED")
	for _, c := range cards {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			c.Name, c.AccountNumber, c.CurrentBalance, c.CreditLimit, c.Utilization, c.LastReconciled)
	}
	return w.Flush()
}

type CardsReconcileCmd struct {
	ID               string `help:"Card identifier." arg:""`
	Date             string `help:"Statement date in YYYY-MM-DD form." required:""`
	StatementBalance string `help:"Statement balance as a decimal string." required:""`
}

func (cmd *CardsReconcileCmd) Run(g *globals) error {
	body := map[string]any{
		"date":             cmd.Date,
		"statementBalance": cmd.StatementBalance,
	}
	if err := g.postJSON("/api/cards/"+cmd.ID+"/reconcile", body, nil); err != nil {
		return err
	}
	fmt.Printf("reconciled %s at %s\n", cmd.ID, cmd.Date)
	return nil
}

type CardsCmd struct {
	List      CardsListCmd      `cmd:"" help:"List credit cards." default:"1"`
	Reconcile CardsReconcileCmd `cmd:"" help:"Mark a card reconciled at a statement date."`
}

type SavingsGetCmd struct {
	Month string `help:"Month in YYYY-MM form." arg:""`
	User  string `help:"Savings snapshot owner." default:"default"`
}

func (cmd *SavingsGetCmd) Run(g *globals) error {
	path := "/api/savings/" + cmd.Month + "?user=" + url.QueryEscape(cmd.User)

	var snapshot struct {
		StartingBalance decimal.Decimal `json:"startingBalance"`
		Items           []struct {
			Name string          `json:"name"`
			Cost decimal.Decimal `json:"cost"`
		} `json:"items"`
	}
	if err := g.get(path, &snapshot); err != nil {
		return err
	}

	remaining := snapshot.StartingBalance
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "STARTING\t%s\n", snapshot.StartingBalance.StringFixed(2))
	for _, item := range snapshot.Items {
		remaining = remaining.Sub(item.Cost)
		fmt.Fprintf(w, "%s\t-%s\n", item.Name, item.Cost.StringFixed(2))
	}
	fmt.Fprintf(w, "REMAINING\t%s\n", remaining.StringFixed(2))
	return w.Flush()
}

type SavingsCmd struct {
	Get SavingsGetCmd `cmd:"" help:"Show a monthly savings snapshot." default:"1"`
}

type ReportCmd struct {
	Month string `help:"Month in YYYY-MM form." arg:""`
}

func (cmd *ReportCmd) Run(g *globals) error {
	var report struct {
		Month      string `json:"month"`
		Categories []struct {
			Category string `json:"category"`
			Count    int64  `json:"count"`
			Total    string `json:"total"`
		} `json:"categories"`
	}
	if err := g.get("/api/reports/"+cmd.Month, &report); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tCOUNT\tTOTAL")
	for _, c := range report.Categories {
		fmt.Fprintf(w, "%s\t%d\t%s\n", c.Category, c.Count, c.Total)
	}
	return w.Flush()
}

type JobsGetCmd struct {
	ID string `help:"Job identifier." arg:""`
}

func (cmd *JobsGetCmd) Run(g *globals) error {
	var job map[string]any
	if err := g.get("/api/jobs/"+cmd.ID, &job); err != nil {
		return err
	}
	out, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

type JobsListCmd struct {
	Limit int `help:"Maximum number of jobs to show." default:"20"`
}

func (cmd *JobsListCmd) Run(g *globals) error {
	var result struct {
		Jobs []struct {
			JobID      string `json:"job_id"`
			ObjectName string `json:"object_name"`
			Status     string `json:"status"`
			CreatedAt  string `json:"created_at"`
		} `json:"jobs"`
	}
	if err := g.get("/api/jobs?limit="+strconv.Itoa(cmd.Limit), &result); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tOBJECT\tSTATUS\tCREATED")
	for _, j := range result.Jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", j.JobID, j.ObjectName, j.Status, j.CreatedAt)
	}
	return w.Flush()
}

type JobsCmd struct {
	List JobsListCmd `cmd:"" help:"List ingestion jobs." default:"1"`
	Get  JobsGetCmd  `cmd:"" help:"Show one ingestion job."`
}

var cli struct {
	globals

	Upload  UploadCmd  `cmd:"" help:"Ingest a CSV statement."`
	People  PeopleCmd  `cmd:"" help:"Manage the people registry."`
	Cards   CardsCmd   `cmd:"" help:"Inspect credit cards."`
	Savings SavingsCmd `cmd:"" help:"Inspect savings snapshots."`
	Jobs    JobsCmd    `cmd:"" help:"Inspect ingestion jobs."`
	Report  ReportCmd  `cmd:"" help:"Show monthly spend by category."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("ledgerctl"),
		kong.Description("Command-line client for the splitledger API."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.globals)
	ctx.FatalIfErrorf(err)
}
