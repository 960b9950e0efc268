package syncer

import (
	"context"

	"github.com/matheus3301/chatsync/internal/remote"
	"go.uber.org/zap"
)

// ProfileUpdate lists profile fields to write. Empty fields keep their
// current value.
type ProfileUpdate struct {
	Name     string
	Number   string
	ImageURL string
	Status   string
}

// ProfileSync mirrors the signed-in user's profile document.
type ProfileSync struct {
	store    remote.Store
	notifier *Notifier
	logger   *zap.Logger

	slot     slot
	resolved bool // guarded by slot.mu
	profile  *Value[*UserProfile]
}

func newProfileSync(st remote.Store, n *Notifier, logger *zap.Logger, profile *Value[*UserProfile]) *ProfileSync {
	return &ProfileSync{store: st, notifier: n, logger: logger, profile: profile}
}

// Attach subscribes to users/{uid}. onResolved runs once, after the first
// snapshot that contains the profile.
func (p *ProfileSync) Attach(ctx context.Context, uid string, onResolved func(UserProfile)) error {
	epoch := p.slot.begin(func() {
		p.resolved = false
		p.profile.set(nil)
	})

	sub, err := p.store.Subscribe(ctx, remote.Doc(usersCollection, uid), func(snap remote.Snapshot, err error) {
		if err != nil {
			if p.slot.current(epoch) {
				p.notifier.Report(remoteError("Cannot load profile", err))
			}
			return
		}
		doc, ok := snap.First()
		if !ok {
			// Not written yet; sign-up creates it right after the account.
			return
		}
		profile, ok := decodeProfile(doc)
		if !ok {
			p.logger.Warn("ignoring malformed profile", zap.String("uid", uid))
			return
		}
		var first bool
		p.slot.guard(epoch, func() {
			first = !p.resolved
			p.resolved = true
			p.profile.set(&profile)
		})
		if first && onResolved != nil {
			onResolved(profile)
		}
	})
	if err != nil {
		err = remoteError("Cannot load profile", err)
		p.notifier.Report(err)
		return err
	}
	p.slot.bind(epoch, sub)
	return nil
}

// Detach cancels the subscription and forgets the profile.
func (p *ProfileSync) Detach() {
	p.slot.cancel(func() {
		p.resolved = false
		p.profile.set(nil)
	})
}

// Upsert writes the profile of uid. An existing document receives only
// the supplied fields; a missing one is created from the supplied fields
// over whatever profile is held in memory.
func (p *ProfileSync) Upsert(ctx context.Context, uid string, upd ProfileUpdate) error {
	snap, err := p.store.Get(ctx, remote.Doc(usersCollection, uid))
	if err != nil {
		return remoteError("Cannot retrieve user data", err)
	}
	if snap.Empty() {
		err = p.create(ctx, uid, upd)
	} else {
		err = p.store.Update(ctx, usersCollection, uid, upd.fields(uid))
	}
	if err != nil {
		return remoteError("Cannot update profile", err)
	}
	p.logger.Info("profile saved", zap.String("uid", uid), zap.Bool("created", snap.Empty()))
	return nil
}

func (p *ProfileSync) create(ctx context.Context, uid string, upd ProfileUpdate) error {
	cur := p.profile.Get()
	if cur == nil || cur.UserID != uid {
		cur = &UserProfile{}
	}
	data, err := remote.ToData(UserProfile{
		UserID:   uid,
		Name:     pick(upd.Name, cur.Name),
		Number:   pick(upd.Number, cur.Number),
		ImageURL: pick(upd.ImageURL, cur.ImageURL),
		Status:   pick(upd.Status, cur.Status),
	})
	if err != nil {
		return err
	}
	return p.store.Put(ctx, usersCollection, uid, data)
}

// fields holds the non-empty fields of upd, keyed like the document.
func (upd ProfileUpdate) fields(uid string) map[string]any {
	out := map[string]any{"userId": uid}
	for key, v := range map[string]string{
		"name":     upd.Name,
		"number":   upd.Number,
		"imageUrl": upd.ImageURL,
		"status":   upd.Status,
	} {
		if v != "" {
			out[key] = v
		}
	}
	return out
}

func pick(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
