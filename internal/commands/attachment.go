package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/balkashynov/defectctl/internal/parser"
)

var attachmentCmd = &cobra.Command{
	Use:     "attachment",
	Aliases: []string{"attachments", "att"},
	Short:   "Manage files attached to defects",
}

var attachmentListCmd = &cobra.Command{
	Use:     "ls [defect-ref]",
	Aliases: []string{"list"},
	Short:   "List files attached to a defect",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		defectID, err := parseID(args[0], "defect")
		if err != nil {
			return err
		}
		attachments, err := a.api.Attachments(cmd.Context(), defectID)
		if err != nil {
			return fmt.Errorf("listing attachments on defect %d: %w", defectID, err)
		}

		return render(cmd.OutOrStdout(), attachments, func() {
			if len(attachments) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No files attached to %s.\n", parser.DefectRef(defectID))
				return
			}
			rows := make([][]string, 0, len(attachments))
			for _, att := range attachments {
				rows = append(rows, []string{
					strconv.Itoa(att.ID),
					truncate(att.Filename, 40),
					strconv.Itoa(att.UploaderID),
					att.UploadedAt.Display(),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "FILE", "UPLOADER", "UPLOADED"}, rows)
		})
	},
}

var attachmentUploadCmd = &cobra.Command{
	Use:   "upload [defect-ref] [file]",
	Short: "Attach a file to a defect",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		defectID, err := parseID(args[0], "defect")
		if err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		att, err := a.api.UploadAttachment(cmd.Context(), defectID, filepath.Base(args[1]), f)
		if err != nil {
			return fmt.Errorf("uploading %s: %w", args[1], err)
		}
		return render(cmd.OutOrStdout(), att, func() {
			success(cmd.OutOrStdout(), "Attached %s to %s as #%d", att.Filename, parser.DefectRef(defectID), att.ID)
		})
	},
}

var attachmentDownloadCmd = &cobra.Command{
	Use:   "download [defect-ref] [attachment-id]",
	Short: "Save an attached file",
	Long: `Save an attached file. The name the server sends is used unless --output is given.
Use --output - to write to stdout.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		defectID, err := parseID(args[0], "defect")
		if err != nil {
			return err
		}
		id, err := parseID(args[1], "attachment")
		if err != nil {
			return err
		}
		blob, err := a.api.DownloadAttachment(cmd.Context(), defectID, id)
		if err != nil {
			return fmt.Errorf("downloading attachment %d: %w", id, err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = filepath.Base(blob.Filename)
		}
		if output == "" || output == "." || output == string(filepath.Separator) {
			output = fmt.Sprintf("attachment-%d", id)
		}
		return writeBlob(cmd, blob.Data, output)
	},
}

var attachmentRemoveCmd = &cobra.Command{
	Use:     "rm [defect-ref] [attachment-id]",
	Aliases: []string{"delete"},
	Short:   "Delete an attached file",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireUser()
		if err != nil {
			return err
		}
		defectID, err := parseID(args[0], "defect")
		if err != nil {
			return err
		}
		id, err := parseID(args[1], "attachment")
		if err != nil {
			return err
		}
		if err := a.api.DeleteAttachment(cmd.Context(), defectID, id); err != nil {
			return fmt.Errorf("deleting attachment %d: %w", id, err)
		}
		success(cmd.OutOrStdout(), "Deleted attachment #%d from %s", id, parser.DefectRef(defectID))
		return nil
	},
}

// writeBlob saves data to path, or to stdout when path is "-". Bytes are written as received.
func writeBlob(cmd *cobra.Command, data []byte, path string) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	success(cmd.ErrOrStderr(), "Saved %s (%d bytes)", path, len(data))
	return nil
}

func init() {
	attachmentDownloadCmd.Flags().StringP("output", "o", "", "Where to save the file")

	attachmentCmd.AddCommand(attachmentListCmd, attachmentUploadCmd, attachmentDownloadCmd, attachmentRemoveCmd)
}
