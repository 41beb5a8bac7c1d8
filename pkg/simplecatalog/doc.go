// Package simplecatalog implements a movie catalog with per-user wishlists and
// poster images kept in an object store.
//
// Records persist the object key of a poster, never a long-lived URL. Access URLs
// are signed with a bounded lifetime and re-signed at read time by ImageResolver
// once the cached one has expired.
//
// Wishlist rows reference movies without a store-level foreign key. Deleting a
// movie cascades to its wishlist rows, and WishlistManager.List purges any row
// whose movie can no longer be resolved.
//
// Basic usage:
//
//	svc, err := simplecatalog.New(
//	    simplecatalog.WithRepository(memory.New()),
//	    simplecatalog.WithBlobStore(blobStore),
//	    simplecatalog.WithAdminEmails([]string{"admin@example.com"}),
//	)
package simplecatalog
