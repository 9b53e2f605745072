/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

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
package cmd

import (
	"testing"

	"github.com/spf13/viper"
)

func TestAutoImproveFlags_ResolveThroughViper(t *testing.T) {
	initConfig()
	if err := viper.BindPFlags(autoImproveCmd.Flags()); err != nil {
		t.Fatalf("failed to bind flags: %v", err)
	}

	// Flag defaults when nothing else is set.
	if got := viper.GetInt("iterations"); got != 3 {
		t.Errorf("iterations default = %d, want 3", got)
	}
	if got := viper.GetFloat64("target"); got != -1 {
		t.Errorf("target default = %v, want -1", got)
	}
	if got := viper.GetString("memory-id"); got != "" {
		t.Errorf("memory-id default = %q, want empty", got)
	}
}

func TestAutoImproveFlags_EnvOverride(t *testing.T) {
	t.Setenv("AUTODOCEVAL_ITERATIONS", "5")
	t.Setenv("AUTODOCEVAL_TARGET", "0.9")
	t.Setenv("AUTODOCEVAL_MEMORY_ID", "session-a")

	initConfig()
	if err := viper.BindPFlags(autoImproveCmd.Flags()); err != nil {
		t.Fatalf("failed to bind flags: %v", err)
	}

	if got := viper.GetInt("iterations"); got != 5 {
		t.Errorf("iterations = %d, want 5 from environment", got)
	}
	if got := viper.GetFloat64("target"); got != 0.9 {
		t.Errorf("target = %v, want 0.9 from environment", got)
	}
	if got := viper.GetString("memory-id"); got != "session-a" {
		t.Errorf("memory-id = %q, want session-a from environment", got)
	}
}
