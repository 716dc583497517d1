// Client for the text toxicity classification service used by the toxicity and hate speech rules.
package textclass
