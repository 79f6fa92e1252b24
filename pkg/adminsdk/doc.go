/*
Package adminsdk provides the wire types and a client for the back-office
admin API.

# Client vs Session

A Client talks to the public endpoints: health, login and the enrollment
calls that run before a principal has a session. A successful login or
enrollment returns a Session, which carries the session token on every
authenticated call.

	client := adminsdk.NewClient("https://backoffice.example.com")

	session, err := client.Login(ctx, adminsdk.LoginRequest{
		Username: "alice",
		Password: password,
		Code:     totpCode,
	})

# Enrollment

A principal without an enabled TOTP credential does not get a session from
Login. The call fails with *EnrollmentRequiredError, which carries the
one-time provisioning bundle and an MFA token:

	var enroll *adminsdk.EnrollmentRequiredError
	if errors.As(err, &enroll) {
		// show enroll.Provisioning.QRCode, then
		session, err = client.ConfirmEnrollment(ctx, enroll.MFAToken, code)
	}

A principal with MFA enabled who sent no code gets *MFARequiredError.

# Sliding expiry

Every accepted authenticated response carries a renewed token in the X-Token
header. Session replaces its token with it and ExpiresAt follows, so an
active session never expires while it keeps being used.

# Errors

Everything else the server rejects comes back as *APIError with the HTTP
status and the error code from the body.
*/
package adminsdk
