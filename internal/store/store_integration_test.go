// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/holomush/virtualchest/internal/chest"
	"github.com/holomush/virtualchest/internal/core"
	"github.com/holomush/virtualchest/internal/store"
)

var _ = Describe("Migrations", func() {
	It("reports the latest version with nothing pending", func() {
		migrator, err := store.NewMigrator(testConnStr)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = migrator.Close() }()

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(dirty).To(BeFalse())
		Expect(version).To(Equal(uint(2)))

		pending, err := migrator.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})
})

var _ = Describe("PostgresMenuRepository", func() {
	var (
		ctx  context.Context
		repo *store.PostgresMenuRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = store.NewPostgresMenuRepository(testPool)
		_, err := testPool.Exec(ctx, `DELETE FROM chest_menus`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips a menu", func() {
		menu := &chest.Menu{
			ID:    "shop",
			Title: "Shop",
			Rows:  2,
			Slots: []chest.Slot{{Index: 3, Item: chest.Item{Type: "emerald", Count: 4}}},
		}
		Expect(repo.Save(ctx, menu, "alice", true)).To(Succeed())

		got, err := repo.Get(ctx, "shop")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Title).To(Equal("Shop"))
		Expect(got.Slots).To(HaveLen(1))
		Expect(got.Slots[0].Item.Count).To(Equal(4))
		Expect(got.Source).To(Equal(store.DatabaseSource))
	})

	It("rejects a second create and accepts an upsert", func() {
		menu := &chest.Menu{ID: "bank", Title: "Bank", Rows: 1}
		Expect(repo.Save(ctx, menu, "", true)).To(Succeed())

		err := repo.Save(ctx, menu, "", true)
		Expect(err).To(HaveOccurred())
		oopsErr, ok := oops.AsOops(err)
		Expect(ok).To(BeTrue())
		Expect(oopsErr.Code()).To(Equal(store.CodeMenuExists))

		menu.Title = "Vault"
		Expect(repo.Save(ctx, menu, "", false)).To(Succeed())
		got, err := repo.Get(ctx, "bank")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Title).To(Equal("Vault"))
	})

	It("deletes menus", func() {
		Expect(repo.Save(ctx, &chest.Menu{ID: "bank", Title: "Bank", Rows: 1}, "", true)).To(Succeed())
		Expect(repo.Delete(ctx, "bank")).To(Succeed())

		_, err := repo.Get(ctx, "bank")
		Expect(err).To(HaveOccurred())
		Expect(repo.Delete(ctx, "bank")).To(HaveOccurred())
	})

	It("feeds a directory reload", func() {
		Expect(repo.Save(ctx, &chest.Menu{ID: "bank", Title: "Bank", Rows: 1}, "", true)).To(Succeed())
		Expect(repo.Save(ctx, &chest.Menu{ID: "shop", Title: "Shop", Rows: 1}, "", true)).To(Succeed())

		d := chest.NewDirectory()
		d.AddListener(repo)
		result, err := d.Reload(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failures).To(BeEmpty())
		Expect(d.IDs().Slice()).To(Equal([]string{"bank", "shop"}))
	})
})

var _ = Describe("PostgresEventStore", func() {
	var (
		ctx    context.Context
		events *store.PostgresEventStore
		stream string
	)

	BeforeEach(func() {
		ctx = context.Background()
		events = store.NewPostgresEventStore(testPool)
		stream = core.PlayerStream(core.NewULID())
	})

	It("reports an empty stream", func() {
		_, err := events.LastEventID(ctx, stream)
		Expect(err).To(MatchError(core.ErrStreamEmpty))
	})

	It("appends and replays in order", func() {
		var ids []string
		for range 3 {
			e := core.Event{
				ID:        core.NewULID(),
				Stream:    stream,
				Type:      core.EventTypeChestOpen,
				Timestamp: time.Now().UTC(),
				Actor:     core.Actor{Kind: core.ActorPlayer, ID: "p1"},
				Payload:   []byte(`{"menu_id":"shop"}`),
			}
			Expect(events.Append(ctx, e)).To(Succeed())
			ids = append(ids, e.ID.String())
		}

		all, err := events.Replay(ctx, stream, ulid.ULID{}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))
		Expect(all[0].ID.String()).To(Equal(ids[0]))
		Expect(all[0].Payload).To(MatchJSON(`{"menu_id":"shop"}`))

		rest, err := events.Replay(ctx, stream, all[0].ID, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(rest).To(HaveLen(2))

		last, err := events.LastEventID(ctx, stream)
		Expect(err).NotTo(HaveOccurred())
		Expect(last.String()).To(Equal(ids[2]))
	})
})
