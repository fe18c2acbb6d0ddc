package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/service"
	"github.com/Aman-CERP/amandocs/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [scope]",
		Short: "Show indexed file count, build lock and disk usage",
		Long: `Show how many files are indexed under a folder, whether a build
currently holds its lock, and how much disk the index uses.

A lock older than index.lock_max_age is reported as stale; the next build
reclaims it automatically, or clear it now with 'amandocs unlock'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := ""
			if len(args) > 0 {
				scope = args[0]
			}
			return runStatus(cmd, scope, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, scope string, jsonOutput bool) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	st, err := svc.Status(cmd.Context(), scope)
	if err != nil {
		return err
	}

	r := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
	if jsonOutput {
		return r.RenderJSON(st)
	}
	return r.Render(toStatusInfo(st))
}

func toStatusInfo(st *service.ScopeStatus) ui.StatusInfo {
	return ui.StatusInfo{
		Source:       st.Source,
		Scope:        st.Scope,
		IndexedFiles: st.IndexedFiles,
		VectorNodes:  st.VectorNodes,
		Embedder:     st.Embedder,
		Lock: ui.LockInfo{
			Locked:     st.Lock.Locked,
			AgeSeconds: st.Lock.AgeSeconds,
			Stale:      st.Lock.Stale,
			Owner:      st.Lock.Owner,
		},
		Storage: toStorageInfo(st.Storage),
	}
}

func toStorageInfo(s service.Sizes) ui.StorageInfo {
	return ui.StorageInfo{Primary: s.Primary, WAL: s.WAL, SHM: s.SHM, Vector: s.Vector, Total: s.Total}
}

func newUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <scope>",
		Short: "Force-release the build lock of a folder",
		Long: `Remove the build lock of a folder left behind by a crashed or killed
build. Only use this when no build is running for the folder.

Use "/" for the whole-store scope.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			out := output.New(cmd.OutOrStdout())
			if svc.Unlock(args[0]) {
				out.Successf("Released the build lock of %s", args[0])
			} else {
				out.Status("ℹ️ ", fmt.Sprintf("%s was not locked", args[0]))
			}
			return nil
		},
	}
}
