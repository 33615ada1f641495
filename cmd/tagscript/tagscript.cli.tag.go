package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/itsatony/go-tagscript"
	"github.com/spf13/cobra"
)

// tagFlags select the storage for the tag subcommands.
type tagFlags struct {
	driver string
	conn   string
}

func newTagCmd(app *cliApp) *cobra.Command {
	var tf tagFlags

	cmd := &cobra.Command{
		Use:   CmdNameTag,
		Short: "Manage stored tags",
		Long: `Save, inspect and run named scripts kept in the configured storage.
--driver and --conn override the storage section of --config.`,
	}
	cmd.PersistentFlags().StringVar(&tf.driver, FlagDriver, "", "storage driver: "+strings.Join(tagscript.ListStorageDrivers(), ", "))
	cmd.PersistentFlags().StringVar(&tf.conn, FlagConnection, "", "storage connection string")

	cmd.AddCommand(
		newTagSaveCmd(app, &tf),
		newTagShowCmd(app, &tf),
		newTagListCmd(app, &tf),
		newTagDeleteCmd(app, &tf),
		newTagRunCmd(app, &tf),
	)
	return cmd
}

func newTagSaveCmd(app *cliApp, tf *tagFlags) *cobra.Command {
	var description, author, tenant string

	cmd := &cobra.Command{
		Use:     CmdNameTagSave + " <name> [file|-]",
		Short:   "Save a script under a name",
		Example: `  tagscript tag save greet greeting.tag --driver filesystem --conn ./tags`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(sourceArg(args[1:]), app.stdin)
			if err != nil {
				return newCLIError(ExitCodeInputError, ErrMsgReadFileFailed, err)
			}
			if strings.TrimSpace(string(content)) == "" {
				return newCLIError(ExitCodeInputError, ErrMsgTagContentRequired, nil)
			}

			storage, err := app.storage(tf.driver, tf.conn)
			if err != nil {
				return err
			}
			tag := &tagscript.StoredTag{
				Name:        args[0],
				Content:     string(content),
				Description: description,
				Author:      author,
				TenantID:    tenant,
			}
			if err := storage.Save(cmd.Context(), tag); err != nil {
				return storageError(err)
			}
			fmt.Fprintf(app.stdout, TagSavedFormat, tag.Name)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&description, FlagDescription, "", "tag description")
	flags.StringVar(&author, FlagAuthor, "", "tag author")
	flags.StringVar(&tenant, FlagTenant, "", "tenant ID")
	return cmd
}

func newTagShowCmd(app *cliApp, tf *tagFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   CmdNameTagShow + " <name>",
		Short: "Print a stored tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			storage, err := app.storage(tf.driver, tf.conn)
			if err != nil {
				return err
			}
			tag, err := storage.Get(cmd.Context(), args[0])
			if err != nil {
				return storageError(err)
			}

			text := tag.Content
			if !strings.HasSuffix(text, FmtNewline) {
				text += FmtNewline
			}
			data, err := encode(tag, text, format)
			if err != nil {
				return err
			}
			_, err = app.stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "output format: text, json, yaml")
	return cmd
}

func newTagListCmd(app *cliApp, tf *tagFlags) *cobra.Command {
	var (
		query  tagscript.TagQuery
		format string
	)

	cmd := &cobra.Command{
		Use:   CmdNameTagList,
		Short: "List stored tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			storage, err := app.storage(tf.driver, tf.conn)
			if err != nil {
				return err
			}
			tags, err := storage.List(cmd.Context(), &query)
			if err != nil {
				return storageError(err)
			}
			if tags == nil {
				tags = []*tagscript.StoredTag{}
			}

			var buf bytes.Buffer
			for _, tag := range tags {
				fmt.Fprintf(&buf, TagListRowFormat, tag.Name, tag.Uses, tag.Description)
			}
			data, err := encode(tags, buf.String(), format)
			if err != nil {
				return err
			}
			_, err = app.stdout.Write(data)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&query.NamePrefix, FlagPrefix, "", "only names starting with this prefix")
	flags.StringVar(&query.Author, FlagAuthor, "", "only tags by this author")
	flags.StringVar(&query.TenantID, FlagTenant, "", "only tags of this tenant")
	flags.IntVar(&query.Limit, FlagLimit, 0, "maximum number of tags, 0 for all")
	flags.StringVarP(&format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "output format: text, json, yaml")
	return cmd
}

func newTagDeleteCmd(app *cliApp, tf *tagFlags) *cobra.Command {
	return &cobra.Command{
		Use:   CmdNameTagDelete + " <name>",
		Short: "Delete a stored tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := app.storage(tf.driver, tf.conn)
			if err != nil {
				return err
			}
			if err := storage.Delete(cmd.Context(), args[0]); err != nil {
				return storageError(err)
			}
			fmt.Fprintf(app.stdout, TagDeletedFormat, args[0])
			return nil
		},
	}
}

func newTagRunCmd(app *cliApp, tf *tagFlags) *cobra.Command {
	var pf processFlags

	cmd := &cobra.Command{
		Use:   CmdNameTagRun + " <name>",
		Short: "Process a stored tag",
		Long: `Process a stored tag. The tag name is available to the script as {tag}
and cooldowns are keyed by it unless --cooldown-key is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pf.validate(); err != nil {
				return err
			}
			interp, err := app.interpreter()
			if err != nil {
				return err
			}
			storage, err := app.storage(tf.driver, tf.conn)
			if err != nil {
				return err
			}
			seed, err := pf.seed()
			if err != nil {
				return err
			}
			opts, err := pf.options(cmd)
			if err != nil {
				return err
			}

			resp, err := interp.ProcessStored(cmd.Context(), storage, args[0], seed, opts...)
			if err != nil {
				return processError(err)
			}
			return writeResponse(app, resp, &pf)
		},
	}

	pf.register(cmd)
	return cmd
}

// validateFormat checks the --format flag of commands that do not process a
// script.
func validateFormat(format string) error {
	return (&processFlags{format: format}).validate()
}

// storageError maps a storage error to an exit code.
func storageError(err error) error {
	if tagscript.IsTagNotFound(err) {
		return newCLIError(ExitCodeInputError, ErrMsgStorageFailed, err)
	}
	return newCLIError(ExitCodeError, ErrMsgStorageFailed, err)
}
