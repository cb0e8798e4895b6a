package main

import (
	"github.com/spf13/cobra"

	"github.com/hubro-apparatus/hubro/internal/publish"
)

func publishCmd(flags *globalFlags) *cobra.Command {
	var (
		bucket string
		prefix string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the build directory to S3",
		Long: `Upload the build directory to an S3 compatible bucket.

Fingerprinted bundles are uploaded with immutable cache headers, everything else
revalidates. Credentials are read from AWS_ACCESS_KEY_ID and
AWS_SECRET_ACCESS_KEY. Run "hubro build" first.

Examples:
  hubro publish --bucket=my-site
  hubro publish --prefix=v2 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load(cmd, false)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bucket") {
				cfg.Publish.Bucket = bucket
			}
			if cmd.Flags().Changed("prefix") {
				cfg.Publish.Prefix = prefix
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			publisher := publish.New(publish.NewClient(cfg.Publish), publish.Options{
				Bucket: cfg.Publish.Bucket,
				Prefix: cfg.Publish.Prefix,
				DryRun: dryRun,
				Logger: log,
			})
			result, err := publisher.Publish(ctx, cfg.BuildDir())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, o := range result.Objects {
				info(out, "%s %s", o.Key, dim.Sprintf("(%s, %s)", formatBytes(o.Size), o.CacheControl))
			}
			verb := "Published"
			if dryRun {
				verb = "Would publish"
			}
			success(out, "%s %d files (%s) to s3://%s", verb, len(result.Objects), formatBytes(result.Bytes), cfg.Publish.Bucket)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket name (default from config)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the uploads without performing them")

	return cmd
}
