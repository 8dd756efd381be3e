// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/AleutianAI/ComponentArchitect/pkg/ux"
	"github.com/AleutianAI/ComponentArchitect/services/architect"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appConfig.Service()

	svc, err := architect.New(ctx, cfg, &architect.Options{Logger: appLogger.Slog()})
	if err != nil {
		return err
	}
	ux.Info(cmd.OutOrStdout(), fmt.Sprintf("Serving on :%d (Ctrl+C to stop)", cfg.Port))
	return svc.Run(ctx)
}
