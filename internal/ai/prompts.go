package ai

const categorizationSystemPrompt = `You are an accounting assistant for a Moroccan logistics company. ` +
	`You classify receipt images into French expense categories. ` +
	`Always respond with a valid JSON object.`

const categorizationPrompt = `Classify this receipt into expense categories used for mission expense tracking.

Common categories: "Gasoil", "Péage", "Hôtel", "Restauration", "Réparation", "Pièces de rechange", "Vignette", "Divers".

Respond with JSON of the form:
{"categories": ["<best match>", "<second guess>", ...]}

Order the categories from most to least likely. If the image is not a receipt, return an empty list.`
