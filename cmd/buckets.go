// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"hyperbase/cli/internal/hyperbase"
	"hyperbase/cli/internal/output"
)

var (
	bucketTTL    int64
	fileName     string
	fileType     string
	fileOut      string
	fileBeforeID string
	fileLimit    int
)

var bucketsCmd = &cobra.Command{
	Use:     "buckets",
	Aliases: []string{"bucket"},
	Short:   "Manage the file buckets of a project",
}

var bucketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List buckets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		buckets, err := p.Buckets(cmd.Context())
		if err != nil {
			return err
		}
		return render(buckets, func() output.Table { return bucketTable(buckets...) })
	},
}

var bucketsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		in := hyperbase.BucketCreate{Name: args[0]}
		if cmd.Flags().Changed("ttl") {
			in.OptTTL = &bucketTTL
		}
		b, err := p.CreateBucket(cmd.Context(), in)
		if err != nil {
			return err
		}
		bucket := b.Bucket()
		return render(bucket, func() output.Table { return bucketTable(bucket) })
	},
}

var bucketsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a bucket with all its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(cmd)
		if err != nil {
			return err
		}
		b, err := p.Bucket(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := confirm(fmt.Sprintf("Delete bucket %q and all its files?", b.Bucket().Name)); err != nil {
			return err
		}
		if err := b.Delete(cmd.Context()); err != nil {
			return err
		}
		pterm.Success.Printfln("Bucket %s deleted", b.ID())
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:     "files",
	Aliases: []string{"file"},
	Short:   "Manage the files of a bucket",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBucket(cmd)
		if err != nil {
			return err
		}
		page, err := b.Files(cmd.Context(), hyperbase.FileQuery{BeforeID: fileBeforeID, Limit: fileLimit})
		if err != nil {
			return err
		}
		if err := render(page.Files, func() output.Table { return fileTable(page.Files...) }); err != nil {
			return err
		}
		if outFormat == output.FormatTable && len(page.Files) > 0 && page.Pagination.Count < page.Pagination.Total {
			pterm.Info.Printfln("%d of %d files; next page: --before %s",
				page.Pagination.Count, page.Pagination.Total, page.Files[len(page.Files)-1].ID)
		}
		return nil
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		b, err := openBucket(cmd)
		if err != nil {
			return err
		}
		contentType := fileType
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(args[0]))
		}
		stop := spin("Uploading " + filepath.Base(args[0]))
		file, err := b.Upload(cmd.Context(), hyperbase.FileUpload{
			FileName:    filepath.Base(args[0]),
			ContentType: contentType,
			Content:     f,
			Name:        fileName,
		})
		stop()
		if err != nil {
			return err
		}
		return render(file, func() output.Table { return fileTable(*file) })
	},
}

var filesDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download a file",
	Long:  "Download a file to --out, or to its stored name in the current directory. Use --out - for stdout.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBucket(cmd)
		if err != nil {
			return err
		}
		target := fileOut
		if target == "" {
			meta, err := b.File(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			target = filepath.Base(meta.FileName)
			if target == "." || target == string(filepath.Separator) {
				return errors.New("the stored file name is not usable; pass --out")
			}
		}

		body, err := b.Download(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer body.Close()

		if target == "-" {
			_, err = io.Copy(os.Stdout, body)
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			return err
		}
		n, err := io.Copy(out, body)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(target)
			return err
		}
		pterm.Success.Printfln("Saved %s (%s)", target, output.FileSize(n))
		return nil
	},
}

var filesRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBucket(cmd)
		if err != nil {
			return err
		}
		file, err := b.RenameFile(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return render(file, func() output.Table { return fileTable(*file) })
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBucket(cmd)
		if err != nil {
			return err
		}
		if err := confirm(fmt.Sprintf("Delete file %s?", args[0])); err != nil {
			return err
		}
		if err := b.DeleteFile(cmd.Context(), args[0]); err != nil {
			return err
		}
		pterm.Success.Printfln("File %s deleted", args[0])
		return nil
	},
}

var filesURLCmd = &cobra.Command{
	Use:   "url <id>",
	Short: "Print a download link for a browser",
	Long:  "Print a download link authorized by the current session token. Anyone holding the link can read the file until the token expires.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBucket(cmd)
		if err != nil {
			return err
		}
		link, err := b.DownloadURL(args[0])
		if err != nil {
			return err
		}
		fmt.Println(link)
		return nil
	},
}

func init() {
	addProjectFlag(bucketsCmd)
	bucketsCreateCmd.Flags().Int64Var(&bucketTTL, "ttl", 0, "file time-to-live in seconds")
	addYesFlag(bucketsDeleteCmd)
	bucketsCmd.AddCommand(bucketsListCmd, bucketsCreateCmd, bucketsDeleteCmd)

	addProjectFlag(filesCmd)
	filesCmd.PersistentFlags().StringVarP(&flagBucket, "bucket", "b", "", "bucket id")
	filesListCmd.Flags().StringVar(&fileBeforeID, "before", "", "list files older than this file id")
	filesListCmd.Flags().IntVar(&fileLimit, "limit", 0, "maximum number of files")
	filesUploadCmd.Flags().StringVar(&fileName, "name", "", "stored file name (default: the local name)")
	filesUploadCmd.Flags().StringVar(&fileType, "content-type", "", "content type (default: from the extension)")
	filesDownloadCmd.Flags().StringVar(&fileOut, "out", "", "destination path, - for stdout")
	addYesFlag(filesDeleteCmd)
	filesCmd.AddCommand(filesListCmd, filesUploadCmd, filesDownloadCmd, filesRenameCmd, filesDeleteCmd, filesURLCmd)

	rootCmd.AddCommand(bucketsCmd, filesCmd)
}

func bucketTable(buckets ...hyperbase.Bucket) output.Table {
	t := output.Table{Header: []string{"ID", "NAME", "TTL", "CREATED"}}
	for _, b := range buckets {
		ttl := ""
		if b.OptTTL != nil {
			ttl = strconv.FormatInt(*b.OptTTL, 10) + "s"
		}
		t.Rows = append(t.Rows, []string{b.ID, b.Name, ttl, localTime(b.CreatedAt)})
	}
	return t
}

func fileTable(files ...hyperbase.File) output.Table {
	t := output.Table{Header: []string{"ID", "NAME", "TYPE", "SIZE", "CREATED"}}
	for _, f := range files {
		t.Rows = append(t.Rows, []string{f.ID, f.FileName, f.ContentType, output.FileSize(f.Size), localTime(f.CreatedAt)})
	}
	return t
}
