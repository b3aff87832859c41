// Package cmd is for command line interactions with the cloneops engine
package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jjtimmons/cloneops/config"
	"github.com/jjtimmons/cloneops/internal/engine"
	"github.com/jjtimmons/cloneops/internal/enzyme"
	"github.com/jjtimmons/cloneops/internal/state"
	"github.com/jjtimmons/cloneops/internal/store"
)

// stderr logs without a timestamp prefix
var stderr = log.New(os.Stderr, "", 0)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "cloneops",
	Short: `Simulate cloning workflows against an in-silico project.
Digest, ligate, amplify and score sequences through replayable operations`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

// set flags
func init() {
	rootCmd.PersistentFlags().StringP("project", "p", "project.json", "path to the project JSON file")
	rootCmd.PersistentFlags().String("sidecar", "", "path to the sqlite sidecar index")
	rootCmd.PersistentFlags().String("enzymes", "", "tab separated enzyme db overriding the builtins")
	viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
	viper.BindPFlag("sidecar", rootCmd.PersistentFlags().Lookup("sidecar"))
	viper.BindPFlag("enzymes", rootCmd.PersistentFlags().Lookup("enzymes"))
}

// newExecutor builds the executor the subcommands share, with the
// enzyme db and caps from settings
func newExecutor(c config.Config) *engine.Executor {
	db, err := enzyme.NewDB(c.Enzymes)
	if err != nil {
		stderr.Fatalf("failed to read enzyme db: %v", err)
	}
	return &engine.Executor{
		Enzymes:       db,
		MaxFragments:  c.FragmentCap(),
		MaxCandidates: c.CandidateCap(),
	}
}

// loadProject reads the project named in settings, starting an empty
// one if the file does not exist yet
func loadProject(c config.Config) *state.Project {
	if _, err := os.Stat(c.Project); os.IsNotExist(err) {
		return state.NewProject()
	}
	p, err := store.LoadProject(c.Project)
	if err != nil {
		stderr.Fatalf("failed to load project: %v", err)
	}
	return p
}

// saveProject writes the project back to the settings path
func saveProject(c config.Config, p *state.Project) {
	if err := store.SaveProject(p, c.Project); err != nil {
		stderr.Fatalf("failed to save project: %v", err)
	}
}

// indexSets refreshes the sidecar rows for the named candidate sets,
// when a sidecar is configured
func indexSets(c config.Config, p *state.Project, names []string) {
	if c.Sidecar == "" || len(names) == 0 {
		return
	}
	sidecar, err := store.OpenSidecar(c.Sidecar)
	if err != nil {
		stderr.Printf("failed to open sidecar: %v", err)
		return
	}
	defer sidecar.Close()

	indexed := map[string]bool{}
	for _, name := range names {
		set, ok := p.Candidates[name]
		if !ok || indexed[name] {
			continue
		}
		indexed[name] = true
		if err := sidecar.IndexCandidateSet(set); err != nil {
			stderr.Printf("failed to index set %q: %v", name, err)
		}
	}
}
