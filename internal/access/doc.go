// Package access implements the entitlement gate that guards content delivery.
//
// A Gate combines one membership check per configured channel with logical
// AND. Any oracle error, timeout, or Unknown answer denies access; the gate
// never fails open. When access.enabled is false every user is entitled.
package access
