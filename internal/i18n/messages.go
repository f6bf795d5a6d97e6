package i18n

// Message keys shared by the client core and the server handlers.
const (
	KeyEmailRequired      = "validation.email_required"
	KeyEmailInvalid       = "validation.email_invalid"
	KeyEmailTooLong       = "validation.email_too_long"
	KeyPasswordRequired   = "validation.password_required"
	KeyPasswordMinLength  = "validation.password_min_length"
	KeyPasswordUppercase  = "validation.password_uppercase"
	KeyPasswordDigit      = "validation.password_digit"
	KeyConfirmRequired    = "validation.confirm_required"
	KeyPasswordMismatch   = "validation.password_mismatch"
	KeyInvalidCredentials = "auth.invalid_credentials"
	KeyEmailExists        = "auth.email_exists"
	KeyUnknownError       = "auth.unknown_error"
	KeySessionExpired     = "auth.session_expired"
	KeySignedOut          = "auth.signed_out"
	KeyResetSent          = "auth.reset_sent"
	KeyResetSubject       = "auth.reset_subject"
	KeyResetBody          = "auth.reset_body"

	KeyChatInvalid     = "chat.invalid_request"
	KeyChatRateLimited = "chat.rate_limited"
	KeyChatUnavailable = "chat.unavailable"
	KeyChatFailed      = "chat.failed"
	KeyChatSystem      = "chat.system_prompt"

	KeyArrivalTitle       = "push.arrival_title"
	KeyArrivalBody        = "push.arrival_body"
	KeyBookedTitle        = "push.booked_title"
	KeyBookedBody         = "push.booked_body"
	KeyStatusTitle        = "push.status_title"
	KeyStatusBody         = "push.status_body"
	KeyPartnerNotFound    = "partner.not_connected"
	KeyPartnerRegistered  = "partner.registered"
	KeyPartnerFailed      = "partner.failed"
	KeyBookingConfirmed   = "booking.confirmed"
	KeyBookingFailed      = "booking.failed"
	KeyBookingIncomplete  = "booking.incomplete"
	KeyHistoryEmpty       = "booking.history_empty"
	KeyInternalError      = "error.internal"
	KeyNotFound           = "error.not_found"
	KeyUnauthorized       = "error.unauthorized"
	KeyLanguageChanged    = "settings.language_changed"
	KeyUnsupportedLang    = "settings.unsupported_language"
	KeyAdminOnly          = "error.admin_only"
	KeyRateLimited        = "error.rate_limited"
)

var hungarian = map[string]string{
	KeyEmailRequired:      "Az e-mail cím megadása kötelező",
	KeyEmailInvalid:       "Érvénytelen e-mail cím",
	KeyEmailTooLong:       "Az e-mail cím legfeljebb 255 karakter lehet",
	KeyPasswordRequired:   "A jelszó megadása kötelező",
	KeyPasswordMinLength:  "A jelszónak legalább 6 karakterből kell állnia",
	KeyPasswordUppercase:  "A jelszónak tartalmaznia kell legalább egy nagybetűt",
	KeyPasswordDigit:      "A jelszónak tartalmaznia kell legalább egy számot",
	KeyConfirmRequired:    "Kérjük, erősítse meg a jelszót",
	KeyPasswordMismatch:   "A jelszavak nem egyeznek",
	KeyInvalidCredentials: "Hibás e-mail cím vagy jelszó",
	KeyEmailExists:        "Ezzel az e-mail címmel már regisztráltak",
	KeyUnknownError:       "Ismeretlen hiba történt, kérjük, próbálja újra",
	KeySessionExpired:     "A munkamenet lejárt, kérjük, jelentkezzen be újra",
	KeySignedOut:          "Sikeresen kijelentkezett",
	KeyResetSent:          "Ha a cím regisztrálva van, elküldtük a jelszó-visszaállító levelet",
	KeyResetSubject:       "Jelszó visszaállítása",
	KeyResetBody:          "A jelszó visszaállításához nyissa meg az alábbi hivatkozást: %s",

	KeyChatInvalid:     "Érvénytelen kérés",
	KeyChatRateLimited: "Túl sok kérés, kérjük, próbálja újra később",
	KeyChatUnavailable: "Az asszisztens átmenetileg nem elérhető",
	KeyChatFailed:      "Nem sikerült választ kapni az asszisztenstől",
	KeyChatSystem: "Ön a Tesla szervizközpont ügyfélszolgálati asszisztense. " +
		"Segítsen az időpontfoglalásban, a szolgáltatásokkal és a szervizhelyszínekkel kapcsolatos kérdésekben. " +
		"Válaszoljon tömören, magyarul.",

	KeyArrivalTitle:      "Ügyfél érkezett",
	KeyArrivalBody:       "Az ügyfél megérkezett (foglalás: %s)",
	KeyBookedTitle:       "Új foglalás",
	KeyBookedBody:        "%s: %s, %s %s",
	KeyStatusTitle:       "Foglalás frissítve",
	KeyStatusBody:        "Foglalása új állapota: %s",
	KeyPartnerNotFound:   "Nincs összekapcsolt Tesla-fiók. Először csatlakoztassa a fiókját a beállításokban.",
	KeyPartnerRegistered: "A partnerregisztráció sikeres",
	KeyPartnerFailed:     "A partnerregisztráció nem sikerült",
	KeyBookingConfirmed:  "Foglalását rögzítettük",
	KeyBookingFailed:     "A foglalás nem sikerült, kérjük, próbálja újra",
	KeyBookingIncomplete: "Kérjük, töltse ki az összes mezőt",
	KeyHistoryEmpty:      "Nincs korábbi foglalás",
	KeyInternalError:     "Váratlan hiba történt",
	KeyNotFound:          "Nem található",
	KeyUnauthorized:      "Bejelentkezés szükséges",
	KeyLanguageChanged:   "A nyelv módosítva",
	KeyUnsupportedLang:   "Nem támogatott nyelv",
	KeyAdminOnly:         "Ehhez adminisztrátori jogosultság szükséges",
	KeyRateLimited:       "Túl sok próbálkozás, kérjük, várjon egy kicsit",
}

var english = map[string]string{
	KeyEmailRequired:      "Email is required",
	KeyEmailInvalid:       "Invalid email address",
	KeyEmailTooLong:       "Email must be at most 255 characters",
	KeyPasswordRequired:   "Password is required",
	KeyPasswordMinLength:  "Password must be at least 6 characters",
	KeyPasswordUppercase:  "Password must contain at least one uppercase letter",
	KeyPasswordDigit:      "Password must contain at least one number",
	KeyConfirmRequired:    "Please confirm your password",
	KeyPasswordMismatch:   "Passwords do not match",
	KeyInvalidCredentials: "Invalid email or password",
	KeyEmailExists:        "An account with this email already exists",
	KeyUnknownError:       "An unknown error occurred, please try again",
	KeySessionExpired:     "Your session has expired, please sign in again",
	KeySignedOut:          "Signed out",
	KeyResetSent:          "If the address is registered, a password reset email is on its way",
	KeyResetSubject:       "Reset your password",
	KeyResetBody:          "Open the following link to reset your password: %s",

	KeyChatInvalid:     "Invalid request",
	KeyChatRateLimited: "Too many requests, please try again later",
	KeyChatUnavailable: "The assistant is temporarily unavailable",
	KeyChatFailed:      "Could not get a response from the assistant",
	KeyChatSystem: "You are the customer service assistant of a Tesla service center. " +
		"Help with booking appointments and with questions about services and service locations. " +
		"Answer briefly, in English.",

	KeyArrivalTitle:      "Customer arrived",
	KeyArrivalBody:       "A customer has arrived (reservation: %s)",
	KeyBookedTitle:       "New booking",
	KeyBookedBody:        "%s: %s, %s %s",
	KeyStatusTitle:       "Booking updated",
	KeyStatusBody:        "Your booking is now %s",
	KeyPartnerNotFound:   "No Tesla account is connected. Connect your account in settings first.",
	KeyPartnerRegistered: "Partner registration succeeded",
	KeyPartnerFailed:     "Partner registration failed",
	KeyBookingConfirmed:  "Your booking has been recorded",
	KeyBookingFailed:     "Booking failed, please try again",
	KeyBookingIncomplete: "Please fill in every field",
	KeyHistoryEmpty:      "No previous bookings",
	KeyInternalError:     "An unexpected error occurred",
	KeyNotFound:          "Not found",
	KeyUnauthorized:      "Sign-in required",
	KeyLanguageChanged:   "Language changed",
	KeyUnsupportedLang:   "Unsupported language",
	KeyAdminOnly:         "Administrator access required",
	KeyRateLimited:       "Too many attempts, please wait a moment",
}
