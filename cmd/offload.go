/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"os"

	"github.com/shadowpay/shadowpay/internal/offload"
	"github.com/spf13/cobra"
)

// offloadCommand is the child side of the relayer's execution units. It reads
// one request on stdin and writes one result on stdout, so it skips config loading.
func offloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:               offload.SubcommandName,
		Hidden:            true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return offload.Serve(context.Background(), os.Stdin, os.Stdout, offload.DefaultPoolFactory)
		},
	}
}
