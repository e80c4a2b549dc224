/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/trustframe/vc-go/pkg/doc/jwt"
)

// JWTPresClaims is JWT Claims extension by Verifiable Presentation (with custom "vp" claim).
type JWTPresClaims struct {
	*jwt.Claims

	Presentation *rawPresentation `json:"vp,omitempty"`
}

func (jpc *JWTPresClaims) refineFromJWTClaims() {
	raw := jpc.Presentation

	if jpc.Claims == nil {
		return
	}

	if iss := jpc.Claims.Issuer; iss != "" {
		raw.Holder = iss
	}

	if jti := jpc.Claims.ID; jti != "" {
		raw.ID = jti
	}
}

// newJWTPresClaims creates JWT Claims of VP with an option to minimize certain fields put into "vp" claim.
func newJWTPresClaims(vp *Presentation, audience []string, minimizeVP bool) (*JWTPresClaims, error) {
	// jwt encoding supports only a single holder (per the W3C VC data model)
	jwtClaims := &jwt.Claims{
		Issuer: vp.Holder, // iss
		ID:     vp.ID,     // jti
	}

	if len(audience) > 0 {
		jwtClaims.Audience = audience
	}

	var (
		rawVP *rawPresentation
		err   error
	)

	if minimizeVP {
		vpCopy := *vp
		vpCopy.ID = ""
		vpCopy.Holder = ""
		rawVP, err = vpCopy.raw()
	} else {
		rawVP, err = vp.raw()
	}

	if err != nil {
		return nil, err
	}

	// The original JWT is not kept in the "vp" claim of a newly issued token.
	rawVP.JWT = ""

	presClaims := &JWTPresClaims{
		Claims:       jwtClaims,
		Presentation: rawVP,
	}

	return presClaims, nil
}

// JWTPresClaimsUnmarshaller parses JWT of certain type to JWT Claims containing "vp" (Presentation) claim.
type JWTPresClaimsUnmarshaller func(vpJWT string) (*JWTPresClaims, error)

// decodePresJWT parses JWT from the specified string in compact format using the unmarshaller.
// It returns decoded Verifiable Presentation refined by JWT Claims in raw byte array
// and rawPresentation form.
func decodePresJWT(vpJWT string, unmarshaller JWTPresClaimsUnmarshaller) ([]byte, *rawPresentation, error) {
	presClaims, err := unmarshaller(vpJWT)
	if err != nil {
		return nil, nil, fmt.Errorf("decode Verifiable Presentation JWT claims: %w", err)
	}

	if presClaims.Presentation == nil {
		return nil, nil, errors.New("JWT 'vp' claim is not defined")
	}

	// Apply VP-related claims from JWT.
	presClaims.refineFromJWTClaims()

	vpRaw := presClaims.Presentation

	rawBytes, err := json.Marshal(vpRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal \"vp\" claim of JWT: %w", err)
	}

	return rawBytes, vpRaw, nil
}
