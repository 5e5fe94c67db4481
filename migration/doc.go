/*
Package migration tracks schema versions of all state-keeping packages.

Every model and message carries a Metadata attribute with its schema
version. This package maintains the current version per package name,
seeded from the genesis configuration and advanced one step at a time
by the admin via UpgradeSchemaMsg. Version bumps are strictly
sequential so that no upgrade can be skipped.
*/
package migration
