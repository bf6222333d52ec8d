package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/fatebot/internal/character"
	"github.com/zulandar/fatebot/internal/sheet"
	"golang.org/x/term"
)

const localGuild = "local"

func newImportCmd() *cobra.Command {
	var (
		configPath string
		guildID    string
		ownerID    string
	)

	cmd := &cobra.Command{
		Use:   "import [code|-]",
		Short: "Import a character code into the database",
		Long: `Decodes a character code exported from the sheet spreadsheet and stores
it under the given guild and owner. The code is read from the argument, or
from stdin when the argument is "-" or omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, configPath, guildID, ownerID, args)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&guildID, "guild", localGuild, "guild (server or workspace) id to store the character under")
	cmd.Flags().StringVar(&ownerID, "owner", defaultOwner(), "owner id to store the character under")
	return cmd
}

func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return localGuild
}

func runImport(cmd *cobra.Command, configPath, guildID, ownerID string, args []string) error {
	code, err := readCode(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	gormDB, err := openStore(cfg)
	if err != nil {
		return err
	}

	s := sheet.Decode(code)
	id, err := character.Persist(cmd.Context(), gormDB, s, guildID, ownerID)
	if err != nil {
		return err
	}

	name := s.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported character #%d %q with %d skills\n", id, name, s.SkillCount())
	return nil
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [code|-]",
		Short: "Decode a character code and print the sheet",
		Long:  "Decodes a character code without storing it. The code is read from the argument, or from stdin when the argument is \"-\" or omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readCode(cmd, args)
			if err != nil {
				return err
			}
			writeSheet(cmd.OutOrStdout(), sheet.Decode(code))
			return nil
		},
	}
	return cmd
}

// readCode returns the character code from args or stdin. When stdin is an
// interactive terminal the user is prompted first.
func readCode(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Paste the character code, then press Ctrl-D:")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read code from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// writeSheet prints a decoded sheet in a plain terminal layout.
func writeSheet(out io.Writer, s sheet.Sheet) {
	field := func(label, value string) {
		if value == "" {
			return
		}
		value = strings.ReplaceAll(sheet.Unescape(value), "\n", "\n    ")
		fmt.Fprintf(out, "%-14s %s\n", label+":", value)
	}

	field("Name", s.Name)
	field("Description", s.Description)
	fmt.Fprintf(out, "%-14s %d\n", "Refresh:", s.Refresh)
	field("High Concept", s.HighConcept)
	field("Trouble", s.Trouble)
	field("Aspect", s.AspectThree)
	field("Aspect", s.AspectFour)
	field("Aspect", s.AspectFive)
	field("Extras", s.Extras)
	field("Stunts", s.Stunts)
	field("Mild", s.ConsequenceOne)
	field("Moderate", s.ConsequenceTwo)
	field("Severe", s.ConsequenceThree)
	field("Extreme", s.ConsequenceFour)
	fmt.Fprintf(out, "%-14s physical %d, mental %d\n", "Stress:", s.PhysicalStressBoxes, s.MentalStressBoxes)

	skills := s.SkillsByRating()
	if len(skills) == 0 {
		return
	}
	fmt.Fprintln(out, "Skills:")
	for _, sk := range skills {
		fmt.Fprintf(out, "  +%d %-8s %s\n", uint8(sk.Rating), sk.Rating, sk.Name)
	}
}
