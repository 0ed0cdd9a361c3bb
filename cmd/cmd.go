/*
Package cmd provides access to build on the scout CLI

This package makes it easy to create custom scout binaries that use their
own Store, Cache, Fetcher or Publisher. A deployment that uses the default
for each of these requires simply:

	func main() {
		cmd.Execute()
	}

To create your own binary that uses scout's flags but has its own store:

	func main() {
		cmd.Store(NewMyStore())
		cmd.Execute()
	}

cmd.Execute() blocks until the program has completed.
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrutinize/scout"
	"github.com/scrutinize/scout/cache"
	"github.com/scrutinize/scout/console"
	"github.com/scrutinize/scout/dispatch"
	"github.com/scrutinize/scout/ingest"
	"github.com/scrutinize/scout/mysql"
)

//
// P U B L I C
//

// Store sets the global catalog store for this process
func Store(s scout.Store) {
	commander.Store = s
}

// Cache sets the global cache for this process
func Cache(c scout.Cache) {
	commander.Cache = c
}

// Fetcher sets the global probe fetcher for this process
func Fetcher(f scout.Fetcher) {
	commander.Fetcher = f
}

// Publisher sets the global event publisher for this process
func Publisher(p scout.Publisher) {
	commander.Publisher = p
}

// Execute will run the command specified by the command line
func Execute() {
	commander.Execute()
}

//
// P R I V A T E
//

var commander struct {
	*cobra.Command
	Store     scout.Store
	Cache     scout.Cache
	Fetcher   scout.Fetcher
	Publisher scout.Publisher
}

// config is potentially set by CLI below
var config string

func initCommand() {
	if config != "" {
		if err := scout.ReadConfigFile(config); err != nil {
			panic(err.Error())
		}
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
	fmt.Println()
	os.Exit(1)
}

// buildDeps fills any collaborator not pre-set through the public setters
// with the production implementation.
func buildDeps() {
	if commander.Store == nil {
		store, err := mysql.NewStore()
		if err != nil {
			fatalf("Failed creating MySQL store: %v", err)
		}
		commander.Store = store
	}
	if commander.Cache == nil {
		commander.Cache = cache.NewCache()
	}
	if commander.Fetcher == nil {
		commander.Fetcher = scout.NewProbeFetcher()
	}
	if commander.Publisher == nil {
		commander.Publisher = cache.NewPublisher()
	}
}

func lockTTL() time.Duration {
	ttl, err := time.ParseDuration(scout.Config.Dispatch.LockExpiration)
	if err != nil {
		// Checked in Config
		panic(err.Error())
	}
	return ttl
}

func init() {
	scoutCommand := &cobra.Command{
		Use: "scout",
	}

	scoutCommand.PersistentFlags().StringVarP(&config,
		"config", "c", "", "path to a config file to load")

	serveCommand := &cobra.Command{
		Use:   "serve",
		Short: "start the scout console API",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			buildDeps()

			handler := console.NewHandler(commander.Store, commander.Cache,
				commander.Fetcher, commander.Publisher)
			err := console.Run(handler)
			if err != nil {
				fatalf("Console died: %v", err)
			}
		},
	}
	scoutCommand.AddCommand(serveCommand)

	var outfile string
	schemaCommand := &cobra.Command{
		Use:   "schema",
		Short: "output the scout schema",
		Long: `Schema prints the scout MySQL schema.
Useful for something like:
    $ scout schema -o schema.sql
    $ <edit schema.sql further as desired>
    $ mysql -u scout scout < schema.sql
`,
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			if outfile == "" {
				fatalf("An output file is needed to execute; add with --out/-o")
			}

			out, err := os.Create(outfile)
			if err != nil {
				panic(err.Error())
			}
			defer out.Close()

			fmt.Fprint(out, mysql.GetSchema())
		},
	}
	schemaCommand.Flags().StringVarP(&outfile, "out", "o", "", "File to write output to")
	scoutCommand.AddCommand(schemaCommand)

	var addURL string
	var addScore float64
	addCommand := &cobra.Command{
		Use:   "add",
		Short: "add a page to the review catalog",
		Long: `Add is useful for:
    - Seeding starter pages for a new domain
    - Boosting the score of a page that should be reviewed soon

The page's domain is created automatically the first time one of its pages
is added.`,
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()

			if addURL == "" {
				fatalf("A URL is needed to execute; add with --url/-u")
			}
			normalized, err := scout.NormalizeURL(addURL)
			if err != nil {
				fatalf("Could not parse %v as a url: %v", addURL, err)
			}

			buildDeps()
			ingester := ingest.NewIngester(commander.Store, commander.Cache,
				commander.Fetcher, commander.Publisher)
			result, err := ingester.AddPage(normalized, addScore)
			if err != nil {
				fatalf("Failed to add %v: %v", normalized, err)
			}
			if result.Rejection != nil {
				fatalf("Rejected %v: %v", normalized, result.Rejection.Reason)
			}

			if result.New {
				fmt.Printf("Added page %v (%v)\n", normalized, result.PageUUID)
			} else {
				fmt.Printf("Page %v already known (%v), score increased by %v\n",
					normalized, result.PageUUID, addScore)
			}
		},
	}
	addCommand.Flags().StringVarP(&addURL, "url", "u", "", "URL of the page to add")
	addCommand.Flags().Float64VarP(&addScore, "score", "s", 0, "Initial score of the page")
	scoutCommand.AddCommand(addCommand)

	nextCommand := &cobra.Command{
		Use:   "next",
		Short: "pull the next review job and print it",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			buildDeps()

			dispatcher := dispatch.NewDispatcher(commander.Store, commander.Cache)
			job, err := dispatcher.NextJob(lockTTL(), 0)
			if err != nil {
				fatalf("Failed to get the next job: %v", err)
			}
			if job == nil {
				fmt.Println("No job available")
				return
			}

			encoded, err := json.MarshalIndent(job, "", "  ")
			if err != nil {
				panic(err.Error())
			}
			fmt.Println(string(encoded))
		},
	}
	scoutCommand.AddCommand(nextCommand)

	var lambdaScore float64
	lambdaCommand := &cobra.Command{
		Use:   "lambda",
		Short: "set the pending lambda score boost",
		Long: `Lambda stores a pending global score boost. The next dispatcher that
finds every candidate scoring below this value spreads it uniformly over
all pages, pulling a starved catalog back into the interesting range.`,
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			buildDeps()

			ms, ok := commander.Store.(*mysql.Store)
			if !ok {
				fatalf("Tried to use pre-configured store, but couldn't upgrade it to a mysql.Store")
			}
			if err := ms.SetLambdaScore(lambdaScore); err != nil {
				fatalf("Failed to set lambda score: %v", err)
			}
			fmt.Printf("Lambda score set to %v\n", lambdaScore)
		},
	}
	lambdaCommand.Flags().Float64VarP(&lambdaScore, "score", "s", 0, "Lambda score to set")
	scoutCommand.AddCommand(lambdaCommand)

	countCommand := &cobra.Command{
		Use:   "count",
		Short: "print the number of dispatchable pages",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()
			buildDeps()

			dispatcher := dispatch.NewDispatcher(commander.Store, commander.Cache)
			count, err := dispatcher.NextJobsCount()
			if err != nil {
				fatalf("Failed to count jobs: %v", err)
			}
			fmt.Println(count)
		},
	}
	scoutCommand.AddCommand(countCommand)

	commander.Command = scoutCommand
}
