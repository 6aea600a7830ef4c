// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package plugin_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/core"
	"github.com/holomush/virtualchest/internal/plugin"
	"github.com/holomush/virtualchest/internal/script"
)

var _ = Describe("Plugin menus across reloads", func() {
	var (
		ctx        context.Context
		pluginsDir string
		dir        *chest.Directory
		alice      core.Player
	)

	write := func(rel, content string) {
		path := filepath.Join(pluginsDir, rel)
		Expect(os.MkdirAll(filepath.Dir(path), 0o750)).To(Succeed())
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		pluginsDir = GinkgoT().TempDir()
		alice = core.Player{ID: core.NewULID(), Name: "alice"}

		write("shops/plugin.yaml", "name: shops\nversion: 1.0.0\n")
		write("shops/menus/general.yaml", "title: General\nrows: 1\nopen-requirement: player.name == \"alice\"\n")
		write("shops/menus/armory.yaml", "title: Armory\nrows: 1\n")

		evaluator, err := script.NewEvaluator()
		Expect(err).NotTo(HaveOccurred())

		mgr := plugin.NewManager(pluginsDir, plugin.WithMenuValidator(evaluator))

		dir = chest.NewDirectory(chest.WithRequirements(evaluator))
		dir.AddListener(mgr)
		_, err = dir.Reload(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	It("opens plugin menus subject to their requirements", func() {
		Expect(dir.Open(ctx, "general", alice)).To(BeTrue())
		Expect(dir.Open(ctx, "general", core.Player{ID: core.NewULID(), Name: "bob"})).To(BeFalse())
	})

	It("drops open menus whose file was removed", func() {
		Expect(dir.Open(ctx, "armory", alice)).To(BeTrue())
		Expect(os.Remove(filepath.Join(pluginsDir, "shops", "menus", "armory.yaml"))).To(Succeed())

		result, err := dir.Reload(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Removed).To(ConsistOf("armory"))

		_, ok := dir.Lookup(alice)
		Expect(ok).To(BeFalse())
	})

	It("picks up new menu files", func() {
		write("shops/menus/bakery.yml", "title: Bakery\nrows: 2\n")
		_, err := dir.Reload(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(dir.IDs().Slice()).To(Equal([]string{"armory", "bakery", "general"}))
	})

	It("registers plugins installed after the first load", func() {
		write("bank/plugin.yaml", "name: bank\nversion: 1.0.0\n")
		write("bank/menus/vault.yaml", "title: Vault\nrows: 1\n")

		_, err := dir.Reload(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(dir.Open(ctx, "vault", alice)).To(BeTrue())
	})

	It("skips menus with broken requirements", func() {
		write("shops/menus/broken.yaml", "title: Broken\nrows: 1\nopen-requirement: \"player.name ==\"\n")
		_, err := dir.Reload(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(dir.IDs().Contains("broken")).To(BeFalse())
		Expect(dir.IDs().Contains("general")).To(BeTrue())
	})
})
